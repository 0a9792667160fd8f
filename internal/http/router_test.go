package http

import (
	"bytes"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yungbote/techwave-backend/internal/authz"
	redisclient "github.com/yungbote/techwave-backend/internal/clients/redis"
	"github.com/yungbote/techwave-backend/internal/data/aggregates"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/techwave-backend/internal/http/handlers"
	httpMW "github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/services"
)

type apiHarness struct {
	t      *testing.T
	engine *gin.Engine
	auth   services.AuthService
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	metrics := observability.New(prometheus.NewRegistry())

	base := aggregates.BaseDeps{
		DB:       tx,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(tx),
		CASGuard: aggregates.NewCASGuard(tx),
		Outbox:   repos.NewOutboxRepo(tx, log),
		Hooks:    aggregates.NewObservabilityHooks(metrics),
	}
	allowPending := false
	inv := aggregates.NewInventoryLedger(aggregates.InventoryLedgerDeps{Base: base})
	orders := aggregates.NewOrderAggregate(aggregates.OrderAggregateDeps{Base: base, Inventory: inv})
	carts := aggregates.NewCartAggregate(aggregates.CartAggregateDeps{Base: base, Inventory: inv})
	payments := aggregates.NewPaymentProcess(aggregates.PaymentProcessDeps{Base: base, OrderStatus: orders})
	shipments := aggregates.NewShipmentProcess(aggregates.ShipmentProcessDeps{Base: base, OrderStatus: orders, AllowPending: &allowPending})
	catalog := services.NewCatalogService(tx, log, repos.NewProductRepo(tx, log), repos.NewCategoryRepo(tx, log), nil)

	authSvc := services.NewAuthService(log, "test-secret", "techwave", time.Hour)
	engine := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, authSvc),
		Idempotency:     redisclient.NewMemoryIdempotencyStore(),
		AuthHandler:     httpH.NewAuthHandler(authSvc),
		CatalogHandler:  httpH.NewCatalogHandler(catalog, inv),
		CartHandler:     httpH.NewCartHandler(log, carts, nil),
		OrderHandler:    httpH.NewOrderHandler(log, orders, nil),
		PaymentHandler:  httpH.NewPaymentHandler(payments),
		ShipmentHandler: httpH.NewShipmentHandler(shipments),
		HealthHandler:   httpH.NewHealthHandler(nil),
	})
	return &apiHarness{t: t, engine: engine, auth: authSvc}
}

func (h *apiHarness) token(role authz.Role) string {
	h.t.Helper()
	tok, err := h.auth.IssueToken(uuid.New(), role)
	if err != nil {
		h.t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func (h *apiHarness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, want, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

type idOnly struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	Stock  int       `json:"stock"`
}

func (h *apiHarness) createProduct(admin string, price string, stock int) uuid.UUID {
	h.t.Helper()
	rec := h.do(nethttp.MethodPost, "/api/products", admin, map[string]any{
		"name":          "widget-" + uuid.NewString()[:8],
		"unit_price":    price,
		"initial_stock": stock,
	})
	expectStatus(h.t, rec, nethttp.StatusCreated)
	var out struct {
		Product idOnly `json:"product"`
	}
	decode(h.t, rec, &out)
	return out.Product.ID
}

func (h *apiHarness) productStock(id uuid.UUID) int {
	h.t.Helper()
	rec := h.do(nethttp.MethodGet, "/api/products/"+id.String(), "", nil)
	expectStatus(h.t, rec, nethttp.StatusOK)
	var out struct {
		Product idOnly `json:"product"`
	}
	decode(h.t, rec, &out)
	return out.Product.Stock
}

func TestHealthAndMetrics(t *testing.T) {
	h := newAPIHarness(t)
	expectStatus(t, h.do(nethttp.MethodGet, "/healthcheck", "", nil), nethttp.StatusOK)
	expectStatus(t, h.do(nethttp.MethodGet, "/metrics", "", nil), nethttp.StatusOK)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newAPIHarness(t)
	expectStatus(t, h.do(nethttp.MethodGet, "/api/cart", "", nil), nethttp.StatusUnauthorized)
	expectStatus(t, h.do(nethttp.MethodGet, "/api/cart", "not-a-jwt", nil), nethttp.StatusUnauthorized)
}

func TestCatalogWritesAreStaffOnly(t *testing.T) {
	h := newAPIHarness(t)
	client := h.token(authz.RoleClient)
	rec := h.do(nethttp.MethodPost, "/api/products", client, map[string]any{"name": "x", "unit_price": "1.00"})
	expectStatus(t, rec, nethttp.StatusForbidden)

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, rec, &env)
	if env.Error.Code != "unauthorized" {
		t.Fatalf("error code: got=%q want=unauthorized", env.Error.Code)
	}
}

func TestInvalidPathIDIsBadRequest(t *testing.T) {
	h := newAPIHarness(t)
	expectStatus(t, h.do(nethttp.MethodGet, "/api/products/nope", "", nil), nethttp.StatusBadRequest)
}

func TestCheckoutPayShipFlow(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token(authz.RoleAdmin)
	client := h.token(authz.RoleClient)
	productID := h.createProduct(admin, "10.00", 5)

	expectStatus(t, h.do(nethttp.MethodPost, "/api/cart/items", client, map[string]any{
		"product_id": productID, "quantity": 2,
	}), nethttp.StatusOK)

	rec := h.do(nethttp.MethodPost, "/api/cart/checkout", client, nil)
	expectStatus(t, rec, nethttp.StatusCreated)
	var checkout struct {
		Order idOnly `json:"order"`
	}
	decode(t, rec, &checkout)
	orderID := checkout.Order.ID
	if checkout.Order.Status != "pending" {
		t.Fatalf("order status: got=%q want=pending", checkout.Order.Status)
	}
	if got := h.productStock(productID); got != 3 {
		t.Fatalf("stock after checkout: got=%d want=3", got)
	}

	rec = h.do(nethttp.MethodPost, "/api/orders/"+orderID.String()+"/payments", client, map[string]any{"method": "card"})
	expectStatus(t, rec, nethttp.StatusCreated)
	var created struct {
		Payment idOnly `json:"payment"`
	}
	decode(t, rec, &created)

	// only staff may settle a payment
	expectStatus(t, h.do(nethttp.MethodPost, "/api/payments/"+created.Payment.ID.String()+"/complete", client, nil), nethttp.StatusForbidden)

	rec = h.do(nethttp.MethodPost, "/api/payments/"+created.Payment.ID.String()+"/complete", admin, nil)
	expectStatus(t, rec, nethttp.StatusOK)
	var paid struct {
		OrderStatus string `json:"order_status"`
	}
	decode(t, rec, &paid)
	if paid.OrderStatus != "paid" {
		t.Fatalf("order status after payment: got=%q want=paid", paid.OrderStatus)
	}

	rec = h.do(nethttp.MethodPost, "/api/orders/"+orderID.String()+"/shipment", admin, map[string]any{
		"destination_address": "1 Main St",
		"carrier":             "ups",
		"tracking_number":     "TRK-1",
	})
	expectStatus(t, rec, nethttp.StatusCreated)
	var shipment struct {
		Shipment idOnly `json:"shipment"`
	}
	decode(t, rec, &shipment)

	rec = h.do(nethttp.MethodPatch, "/api/shipments/"+shipment.Shipment.ID.String()+"/status", admin, map[string]any{"status": "in_transit"})
	expectStatus(t, rec, nethttp.StatusOK)
	var moved struct {
		OrderStatus string `json:"order_status"`
	}
	decode(t, rec, &moved)
	if moved.OrderStatus != "shipped" {
		t.Fatalf("order status after dispatch: got=%q want=shipped", moved.OrderStatus)
	}

	expectStatus(t, h.do(nethttp.MethodGet, "/api/shipments/track/TRK-1", client, nil), nethttp.StatusOK)
	expectStatus(t, h.do(nethttp.MethodGet, "/api/orders/"+orderID.String()+"/shipment", client, nil), nethttp.StatusOK)

	// a shipped order can no longer be cancelled
	expectStatus(t, h.do(nethttp.MethodPost, "/api/orders/"+orderID.String()+"/cancel", client, nil), nethttp.StatusConflict)
}

func TestOrderShortageReportsDetails(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token(authz.RoleAdmin)
	client := h.token(authz.RoleClient)
	productID := h.createProduct(admin, "4.00", 1)

	rec := h.do(nethttp.MethodPost, "/api/orders", client, map[string]any{
		"lines": []map[string]any{{"product_id": productID, "quantity": 3}},
	})
	expectStatus(t, rec, nethttp.StatusConflict)
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	decode(t, rec, &env)
	if env.Error.Code != "insufficient_stock" {
		t.Fatalf("error code: got=%q want=insufficient_stock", env.Error.Code)
	}
	if env.Error.Details["available"] != float64(1) {
		t.Fatalf("available: got=%v want=1", env.Error.Details["available"])
	}
	if got := h.productStock(productID); got != 1 {
		t.Fatalf("stock must be untouched: got=%d", got)
	}

	metrics := h.do(nethttp.MethodGet, "/metrics", "", nil).Body.String()
	if !strings.Contains(metrics, `techwave_api_errors_total{code="insufficient_stock",route="/api/orders"} 1`) {
		t.Fatalf("shortage not counted in:\n%s", metrics)
	}
}

func TestCancelReleasesStockAndOthersCannotRead(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token(authz.RoleAdmin)
	client := h.token(authz.RoleClient)
	stranger := h.token(authz.RoleClient)
	productID := h.createProduct(admin, "2.50", 4)

	rec := h.do(nethttp.MethodPost, "/api/orders", client, map[string]any{
		"lines": []map[string]any{{"product_id": productID, "quantity": 4}},
	})
	expectStatus(t, rec, nethttp.StatusCreated)
	var created struct {
		Order idOnly `json:"order"`
	}
	decode(t, rec, &created)
	if got := h.productStock(productID); got != 0 {
		t.Fatalf("stock after order: got=%d want=0", got)
	}

	expectStatus(t, h.do(nethttp.MethodGet, "/api/orders/"+created.Order.ID.String(), stranger, nil), nethttp.StatusForbidden)

	rec = h.do(nethttp.MethodPost, "/api/orders/"+created.Order.ID.String()+"/cancel", client, nil)
	expectStatus(t, rec, nethttp.StatusOK)
	if got := h.productStock(productID); got != 4 {
		t.Fatalf("stock after cancel: got=%d want=4", got)
	}
}

func TestRestockAddsStock(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token(authz.RoleAdmin)
	productID := h.createProduct(admin, "1.00", 0)

	rec := h.do(nethttp.MethodPost, "/api/products/"+productID.String()+"/restock", admin, map[string]any{"quantity": 7})
	expectStatus(t, rec, nethttp.StatusOK)
	if got := h.productStock(productID); got != 7 {
		t.Fatalf("stock after restock: got=%d want=7", got)
	}
	expectStatus(t, h.do(nethttp.MethodPost, "/api/products/"+productID.String()+"/restock", admin, map[string]any{"quantity": 0}), nethttp.StatusBadRequest)
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	h := newAPIHarness(t)
	admin := h.token(authz.RoleAdmin)
	client := h.token(authz.RoleClient)
	productID := h.createProduct(admin, "3.00", 10)

	expectStatus(t, h.do(nethttp.MethodPost, "/api/cart/items", client, map[string]any{
		"product_id": productID, "quantity": 1,
	}), nethttp.StatusOK)

	first := h.do(nethttp.MethodPost, "/api/cart/checkout", client, nil, "Idempotency-Key", "co-1")
	expectStatus(t, first, nethttp.StatusCreated)
	second := h.do(nethttp.MethodPost, "/api/cart/checkout", client, nil, "Idempotency-Key", "co-1")
	expectStatus(t, second, nethttp.StatusCreated)
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed checkout")
	}
	if got := h.productStock(productID); got != 9 {
		t.Fatalf("stock reserved once: got=%d want=9", got)
	}
}
