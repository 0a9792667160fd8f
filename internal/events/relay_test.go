package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/techwave-backend/internal/data/repos"
	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

func seedEvent(t *testing.T, repo repos.OutboxRepo, dbc dbctx.Context, eventType string) *commerce.OutboxEvent {
	t.Helper()
	id := uuid.New()
	ev := &commerce.OutboxEvent{
		EventType:     eventType,
		AggregateType: "order",
		AggregateID:   id,
		Topic:         "techwave.orders",
		Key:           id.String(),
		Payload:       datatypes.JSON([]byte(`{"order_id":"` + id.String() + `"}`)),
	}
	if err := repo.Create(dbc, []*commerce.OutboxEvent{ev}); err != nil {
		t.Fatalf("seed outbox event: %v", err)
	}
	return ev
}

func TestRelayPublishesAndRecordsFailures(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()
	repo := repos.NewOutboxRepo(tx, log)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	created := seedEvent(t, repo, dbc, commerce.EventOrderCreated)
	failing := seedEvent(t, repo, dbc, commerce.EventPaymentCreated)
	cancelled := seedEvent(t, repo, dbc, commerce.EventOrderCancelled)

	pub := &MemoryPublisher{FailOn: map[string]error{
		commerce.EventPaymentCreated: errors.New("broker unavailable"),
	}}
	relay := NewRelay(tx, log, repo, pub, nil, RelayConfig{BatchSize: 10, MaxAttempts: 1})

	batch, err := relay.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if batch.Claimed != 3 || batch.Sent != 2 {
		t.Fatalf("expected 3 claimed and 2 sent, got %+v", batch)
	}
	if got := len(pub.Events()); got != 2 {
		t.Fatalf("expected 2 published, got %d", got)
	}

	for _, ev := range []*commerce.OutboxEvent{created, cancelled} {
		rows, err := repo.ListByAggregate(dbc, ev.AggregateID)
		if err != nil || len(rows) != 1 {
			t.Fatalf("ListByAggregate: %v (%d rows)", err, len(rows))
		}
		if rows[0].SentAt == nil {
			t.Fatalf("expected %s marked sent", ev.EventType)
		}
	}
	rows, err := repo.ListByAggregate(dbc, failing.AggregateID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByAggregate: %v", err)
	}
	if rows[0].SentAt != nil || rows[0].Attempts != 1 || rows[0].LastError != "broker unavailable" {
		t.Fatalf("expected failure recorded, got %+v", rows[0])
	}

	// the failed row has used its only attempt
	batch, err = relay.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if batch.Claimed != 0 {
		t.Fatalf("expected nothing left to claim, got %d", batch.Claimed)
	}
}

func TestRelayRetriesFailedEventOnNextPoll(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()
	repo := repos.NewOutboxRepo(tx, log)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ev := seedEvent(t, repo, dbc, commerce.EventShipmentCreated)
	pub := &MemoryPublisher{FailOn: map[string]error{commerce.EventShipmentCreated: errors.New("timeout")}}
	relay := NewRelay(tx, log, repo, pub, nil, RelayConfig{BatchSize: 10, MaxAttempts: 5})

	if _, err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	delete(pub.FailOn, commerce.EventShipmentCreated)
	batch, err := relay.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if batch.Claimed != 1 || len(pub.Events()) != 1 {
		t.Fatalf("expected retry to publish, claimed=%d published=%d", batch.Claimed, len(pub.Events()))
	}
	rows, _ := repo.ListByAggregate(dbc, ev.AggregateID)
	if len(rows) != 1 || rows[0].SentAt == nil || rows[0].Attempts != 1 {
		t.Fatalf("unexpected row after retry: %+v", rows)
	}
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	relay := NewRelay(tx, log, repos.NewOutboxRepo(tx, log), &MemoryPublisher{}, nil, RelayConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := relay.Run(ctx); err != nil {
		t.Fatalf("Run after cancel: %v", err)
	}
}

func TestRelayBacksOffWhenBatchMakesNoProgress(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()
	repo := repos.NewOutboxRepo(tx, log)
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	seedEvent(t, repo, dbc, commerce.EventPaymentCreated)
	seedEvent(t, repo, dbc, commerce.EventPaymentCreated)
	pub := &MemoryPublisher{FailOn: map[string]error{commerce.EventPaymentCreated: errors.New("broker unavailable")}}
	relay := NewRelay(tx, log, repo, pub, nil, RelayConfig{BatchSize: 2, PollInterval: 10 * time.Millisecond, MaxBackoff: time.Second})

	batch, err := relay.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if batch.Claimed != 2 || !batch.Stalled() {
		t.Fatalf("expected a full batch with nothing sent, got %+v", batch)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = time.Second
	if wait := relay.nextWait(b, batch, nil); wait <= 0 {
		t.Fatalf("a full batch that published nothing must back off, got %s", wait)
	}
	if wait := relay.nextWait(b, Batch{Claimed: 2, Sent: 1}, nil); wait != 0 {
		t.Fatalf("a full batch with progress polls again immediately, got %s", wait)
	}
	if wait := relay.nextWait(b, Batch{}, nil); wait != 10*time.Millisecond {
		t.Fatalf("an empty poll waits the poll interval, got %s", wait)
	}
}
