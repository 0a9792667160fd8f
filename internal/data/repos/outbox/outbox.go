package outbox

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type OutboxRepo interface {
	Create(dbc dbctx.Context, rows []*commerce.OutboxEvent) error
	// ClaimPending locks up to limit unsent events, oldest first, skipping rows another
	// relay already holds.
	ClaimPending(dbc dbctx.Context, limit, maxAttempts int) ([]*commerce.OutboxEvent, error)
	MarkSent(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error
	ListByAggregate(dbc dbctx.Context, aggregateID uuid.UUID) ([]*commerce.OutboxEvent, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{db: db, log: baseLog.With("repo", "OutboxRepo")}
}

func (r *outboxRepo) Create(dbc dbctx.Context, rows []*commerce.OutboxEvent) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return t.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *outboxRepo) ClaimPending(dbc dbctx.Context, limit, maxAttempts int) ([]*commerce.OutboxEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	q := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("sent_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	var out []*commerce.OutboxEvent
	if err := q.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *outboxRepo) MarkSent(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&commerce.OutboxEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"sent_at":    at,
			"last_error": "",
		}).Error
}

func (r *outboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, reason string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	reason = truncateReason(reason, maxFailureReason)
	return t.WithContext(dbc.Ctx).
		Model(&commerce.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *outboxRepo) ListByAggregate(dbc dbctx.Context, aggregateID uuid.UUID) ([]*commerce.OutboxEvent, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.OutboxEvent
	err := t.WithContext(dbc.Ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

const maxFailureReason = 1000

// truncateReason cuts s to at most n bytes without splitting a rune.
func truncateReason(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
