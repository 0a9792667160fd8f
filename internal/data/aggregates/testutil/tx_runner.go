package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/techwave-backend/internal/data/aggregates"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps an optional real runner and injects failures around the body.
// A failure injected after the body runs inside the inner transaction, so everything the
// body wrote is rolled back with it.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin error
	// FailAfterBody fails the first FailAfterBodyTimes attempts (all attempts when 0).
	FailAfterBody      error
	FailAfterBodyTimes int

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	attempt := r.BeginCalls
	failBegin := r.FailBegin
	failAfter := r.FailAfterBody
	if r.FailAfterBodyTimes > 0 && attempt > r.FailAfterBodyTimes {
		failAfter = nil
	}
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failAfter
	}

	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	r.mu.Unlock()
	return err
}
