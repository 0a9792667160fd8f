package outbox

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

func TestOutboxRepoClaimAndMark(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewOutboxRepo(db, testutil.Logger(t))

	aggID := uuid.New()
	now := time.Now().UTC()
	first := &commerce.OutboxEvent{
		EventType: commerce.EventOrderCreated, AggregateType: "order", AggregateID: aggID,
		Topic: "orders", Key: aggID.String(), Payload: datatypes.JSON([]byte(`{}`)),
		CreatedAt: now.Add(-time.Minute),
	}
	second := &commerce.OutboxEvent{
		EventType: commerce.EventOrderCancelled, AggregateType: "order", AggregateID: aggID,
		Topic: "orders", Key: aggID.String(), Payload: datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
	}
	if err := repo.Create(dbc, []*commerce.OutboxEvent{first, second}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := repo.ClaimPending(dbc, 10, 3)
	if err != nil || len(pending) < 2 {
		t.Fatalf("ClaimPending: err=%v rows=%d", err, len(pending))
	}

	if err := repo.MarkSent(dbc, []uuid.UUID{first.ID}, now); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if err := repo.MarkFailed(dbc, second.ID, "broker down"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	rows, err := repo.ListByAggregate(dbc, aggID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByAggregate: err=%v rows=%d", err, len(rows))
	}
	if rows[0].SentAt == nil {
		t.Fatalf("first event should be marked sent")
	}
	if rows[1].Attempts != 1 || rows[1].LastError != "broker down" {
		t.Fatalf("second event should record the failure: %+v", rows[1])
	}

	pending, err = repo.ClaimPending(dbc, 10, 1)
	if err != nil {
		t.Fatalf("ClaimPending after failure: %v", err)
	}
	for _, ev := range pending {
		if ev.AggregateID == aggID {
			t.Fatalf("exhausted or sent events must not be claimed again")
		}
	}
}

func TestTruncateReasonKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes, so the limit lands inside the last rune
	reason := strings.Repeat("a", maxFailureReason-1) + "é"
	got := truncateReason(reason, maxFailureReason)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated reason is not valid utf-8")
	}
	if len(got) != maxFailureReason-1 {
		t.Fatalf("length: got=%d want=%d", len(got), maxFailureReason-1)
	}
	if short := truncateReason("broker down", maxFailureReason); short != "broker down" {
		t.Fatalf("short reasons must pass through, got %q", short)
	}
}

func TestOutboxRepoMarkFailedStoresValidUTF8(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewOutboxRepo(db, testutil.Logger(t))

	aggID := uuid.New()
	ev := &commerce.OutboxEvent{
		EventType: commerce.EventOrderCreated, AggregateType: "order", AggregateID: aggID,
		Topic: "orders", Key: aggID.String(), Payload: datatypes.JSON([]byte(`{}`)),
	}
	if err := repo.Create(dbc, []*commerce.OutboxEvent{ev}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	reason := "a" + strings.Repeat("é", 600)
	if err := repo.MarkFailed(dbc, ev.ID, reason); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	rows, err := repo.ListByAggregate(dbc, aggID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByAggregate: err=%v rows=%d", err, len(rows))
	}
	if !utf8.ValidString(rows[0].LastError) || len(rows[0].LastError) > maxFailureReason {
		t.Fatalf("stored reason must be valid utf-8 within %d bytes, got %d bytes", maxFailureReason, len(rows[0].LastError))
	}
}
