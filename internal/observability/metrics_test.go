package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordAggregateSignals(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAggregateOperation("Commerce.Cart.Checkout", "success", 20*time.Millisecond)
	m.ObserveAggregateOperation("Commerce.Cart.Checkout", "insufficient_stock", time.Millisecond)
	m.IncAggregateConflict("Commerce.Cart.Checkout")
	m.IncAggregateConflict("Commerce.Cart.Checkout")
	m.IncAggregateRetry("Commerce.Order.Cancel")

	if got := promtest.ToFloat64(m.aggregateOps.WithLabelValues("Commerce.Cart.Checkout", "success")); got != 1 {
		t.Fatalf("success ops: %v", got)
	}
	if got := promtest.ToFloat64(m.aggregateConflicts.WithLabelValues("Commerce.Cart.Checkout")); got != 2 {
		t.Fatalf("conflicts: %v", got)
	}
	if got := promtest.ToFloat64(m.aggregateRetries.WithLabelValues("Commerce.Order.Cancel")); got != 1 {
		t.Fatalf("retries: %v", got)
	}
}

func TestMetricsHandlerExposesAPICounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ApiInflightInc()
	m.ObserveAPI("GET", "/api/products", "200", 5*time.Millisecond)
	m.ApiInflightDec()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `techwave_api_requests_total{method="GET",route="/api/products",status="200"} 1`) {
		t.Fatalf("missing api counter in:\n%s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ObserveAggregateOperation("x", "success", time.Millisecond)
	m.IncOrderExpiry("cancelled")
	if m.Enabled() {
		t.Fatalf("nil metrics must report disabled")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: %d", rec.Code)
	}
}
