package aggregates

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

// TxRunner opens the transaction every aggregate write attempt runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type TxOption func(*gormTxRunner)

// WithLockTimeout bounds how long a postgres transaction waits on a row lock, so a
// checkout queued behind a hot product row fails with lock_not_available and is
// retried instead of holding a connection. Ignored on other dialects.
func WithLockTimeout(d time.Duration) TxOption {
	return func(r *gormTxRunner) { r.lockTimeout = d }
}

type gormTxRunner struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTxRunner returns a runner backed by gorm transactions. Given a *gorm.DB that
// is already a transaction, each InTx becomes a savepoint.
func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt := r.lockTimeoutStmt(tx); stmt != "" {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock_timeout: %w", err)
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (r *gormTxRunner) lockTimeoutStmt(tx *gorm.DB) string {
	if r.lockTimeout <= 0 || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return ""
	}
	// SET does not accept bind parameters; the value is an integer we format ourselves.
	return fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
}
