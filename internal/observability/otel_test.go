package observability

import "testing"

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,broken, =x,team=core")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "core" {
		t.Fatalf("headers: %v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestLoadOtelConfigClampsRatio(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")
	cfg := LoadOtelConfig()
	if !cfg.Enabled || cfg.SampleRatio != 1 {
		t.Fatalf("cfg: %+v", cfg)
	}
	if cfg.ServiceName != "techwave" {
		t.Fatalf("service name: %s", cfg.ServiceName)
	}
}
