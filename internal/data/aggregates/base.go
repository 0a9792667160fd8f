package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

const (
	defaultMaxAttempts   = 3
	defaultRetryInterval = 20 * time.Millisecond
	maxRetryInterval     = 250 * time.Millisecond
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Policy   authz.Policy
	Outbox   repos.OutboxRepo
	Now      func() time.Time

	// MaxAttempts bounds executeWrite retries of conflict/retryable failures. 1 disables retry.
	MaxAttempts   int
	RetryInterval time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Policy == nil {
		d.Policy = authz.NewRolePolicy()
	}
	if d.Outbox == nil && d.DB != nil {
		d.Outbox = repos.NewOutboxRepo(d.DB, d.Log)
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = envutil.Int("AGGREGATE_MAX_ATTEMPTS", defaultMaxAttempts)
		if d.MaxAttempts <= 0 {
			d.MaxAttempts = 1
		}
	}
	if d.RetryInterval <= 0 {
		d.RetryInterval = defaultRetryInterval
	}
	return d
}

// executeWrite runs fn in a fresh transaction per attempt. Conflict and retryable
// failures are retried with exponential backoff; everything else is returned on the
// first occurrence. Hooks count every failed attempt and observe the final outcome once.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = deps.RetryInterval
	b.MaxInterval = maxRetryInterval

	var last error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		mapped := MapError(op, deps.Runner.InTx(ctx, fn))
		last = mapped
		if mapped == nil {
			return struct{}{}, nil
		}
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
		if !isRetryableCode(mapped) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(mapped)
		}
		return struct{}{}, mapped
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(deps.MaxAttempts)))

	mapped := last
	if err != nil && mapped == nil {
		mapped = MapError(op, err)
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		deps.Log.Debug("aggregate write failed", "op", op, "status", status, "error", mapped)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func isRetryableCode(err error) bool {
	return domainagg.IsCode(err, domainagg.CodeConflict) || domainagg.IsCode(err, domainagg.CodeRetryable)
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}

// authorize queries the policy once and converts a denial into CodeUnauthorized.
func authorize(deps BaseDeps, op string, actor authz.Actor, action authz.Action, res authz.Resource) error {
	if err := deps.Policy.Authorize(actor, action, res); err != nil {
		return domainagg.NewError(domainagg.CodeUnauthorized, op, err.Error(), err)
	}
	return nil
}

// readTx is the read-side entry point; reads run on the base db without retry.
func readTx(ctx context.Context, deps BaseDeps) dbctx.Context {
	return dbctx.Context{Ctx: ctx, Tx: deps.DB}
}
