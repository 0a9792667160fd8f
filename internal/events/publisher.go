package events

import (
	"context"
	"sync"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// Publisher delivers one outbox event to the event bus.
type Publisher interface {
	Publish(ctx context.Context, ev *commerce.OutboxEvent) error
	Close() error
}

// LogPublisher is used when no broker is configured. Events are marked sent after
// being logged.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("publisher", "LogPublisher")}
}

func (p *LogPublisher) Publish(_ context.Context, ev *commerce.OutboxEvent) error {
	p.log.Info("Outbox event",
		"event_type", ev.EventType,
		"topic", ev.Topic,
		"key", ev.Key,
		"aggregate_id", ev.AggregateID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MemoryPublisher records events in process. Tests use it, and FailOn lets them
// reject specific event types.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*commerce.OutboxEvent
	FailOn map[string]error
}

func (p *MemoryPublisher) Publish(_ context.Context, ev *commerce.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.FailOn[ev.EventType]; err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

func (p *MemoryPublisher) Events() []*commerce.OutboxEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*commerce.OutboxEvent, len(p.events))
	copy(out, p.events)
	return out
}
