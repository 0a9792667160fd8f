package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/techwave-backend/internal/data/aggregates"
)

type HookKind string

const (
	HookOperation HookKind = "operation"
	HookConflict  HookKind = "conflict"
	HookRetry     HookKind = "retry"
)

// HookEvent is one signal received by a HooksRecorder. Status and Duration are only
// set for HookOperation.
type HookEvent struct {
	Kind     HookKind
	Op       string
	Status   string
	Duration time.Duration
}

// HooksRecorder keeps every aggregate hook signal in arrival order.
type HooksRecorder struct {
	mu     sync.Mutex
	events []HookEvent
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) record(e HookEvent) {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
}

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.record(HookEvent{Kind: HookOperation, Op: name, Status: status, Duration: dur})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.record(HookEvent{Kind: HookConflict, Op: name})
}

func (h *HooksRecorder) IncRetry(name string) {
	h.record(HookEvent{Kind: HookRetry, Op: name})
}

// Events returns a copy of everything recorded so far.
func (h *HooksRecorder) Events() []HookEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HookEvent(nil), h.events...)
}

// Count returns how many signals of kind were recorded for op; an empty op matches all.
func (h *HooksRecorder) Count(kind HookKind, op string) int {
	n := 0
	for _, e := range h.Events() {
		if e.Kind == kind && (op == "" || e.Op == op) {
			n++
		}
	}
	return n
}

// LastStatus returns the final status of the most recent write named op.
func (h *HooksRecorder) LastStatus(op string) string {
	events := h.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == HookOperation && events[i].Op == op {
			return events[i].Status
		}
	}
	return ""
}
