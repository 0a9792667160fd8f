package temporalx

import (
	"testing"
	"time"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		base, max time.Duration
		attempt   int
		want      time.Duration
	}{
		{250 * time.Millisecond, 5 * time.Second, 1, 250 * time.Millisecond},
		{250 * time.Millisecond, 5 * time.Second, 3, time.Second},
		{250 * time.Millisecond, 5 * time.Second, 10, 5 * time.Second},
		{0, 0, 2, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := clampBackoff(tc.base, tc.max, tc.attempt); got != tc.want {
			t.Fatalf("clampBackoff(%v,%v,%d) = %v, want %v", tc.base, tc.max, tc.attempt, got, tc.want)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("ORDER_PENDING_TTL", "")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("expected temporal disabled without address")
	}
	if cfg.OrderPendingTTL != 24*time.Hour {
		t.Fatalf("default pending ttl = %v", cfg.OrderPendingTTL)
	}
	if cfg.Namespace != "techwave" || cfg.TaskQueue != "techwave-orders" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	t.Setenv("ORDER_PENDING_TTL", "30m")
	if got := LoadConfig().OrderPendingTTL; got != 30*time.Minute {
		t.Fatalf("ORDER_PENDING_TTL override = %v", got)
	}
}
