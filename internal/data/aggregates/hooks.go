package aggregates

import (
	"time"

	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// Hooks receives the outcome of every aggregate write. ObserveOperation is called
// once per write with "success" or the error code; IncConflict and IncRetry once per
// failed attempt.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// NewObservabilityHooks feeds write outcomes into the prometheus collectors.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if !metrics.Enabled() {
		return noopHooks{}
	}
	return metricsHooks{m: metrics}
}

type metricsHooks struct{ m *observability.Metrics }

func (h metricsHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(name, status, dur)
}
func (h metricsHooks) IncConflict(name string) { h.m.IncAggregateConflict(name) }
func (h metricsHooks) IncRetry(name string)    { h.m.IncAggregateRetry(name) }

// NewLogHooks logs lost races and writes slower than slow. Contended products show
// up here as repeated conflicts on checkout and restock.
func NewLogHooks(log *logger.Logger, slow time.Duration) Hooks {
	if log == nil {
		return noopHooks{}
	}
	return logHooks{log: log.With("component", "AggregateHooks"), slow: slow}
}

type logHooks struct {
	log  *logger.Logger
	slow time.Duration
}

func (h logHooks) ObserveOperation(name, status string, dur time.Duration) {
	if h.slow > 0 && dur >= h.slow {
		h.log.Warn("Slow aggregate write", "op", name, "status", status, "duration_ms", dur.Milliseconds())
	}
}
func (h logHooks) IncConflict(name string) { h.log.Debug("Aggregate write conflict", "op", name) }
func (h logHooks) IncRetry(name string)    { h.log.Debug("Aggregate write retry", "op", name) }

// CombineHooks fans each signal out to every non-nil hook.
func CombineHooks(hooks ...Hooks) Hooks {
	out := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if _, noop := h.(noopHooks); noop {
			continue
		}
		out = append(out, h)
	}
	switch len(out) {
	case 0:
		return noopHooks{}
	case 1:
		return out[0]
	}
	return out
}

type multiHooks []Hooks

func (m multiHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range m {
		h.ObserveOperation(name, status, dur)
	}
}

func (m multiHooks) IncConflict(name string) {
	for _, h := range m {
		h.IncConflict(name)
	}
}

func (m multiHooks) IncRetry(name string) {
	for _, h := range m {
		h.IncRetry(name)
	}
}
