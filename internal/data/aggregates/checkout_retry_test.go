package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/techwave-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	repotest "github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
)

const checkoutOp = "Commerce.Cart.Checkout"

func newInjectedCart(t *testing.T, tx *gorm.DB, runner *aggtest.InjectedTxRunner, hooks *aggtest.HooksRecorder) (domainagg.CartAggregate, domainagg.CartAggregate) {
	t.Helper()
	log := repotest.Logger(t)
	plain := aggregates.BaseDeps{
		DB:       tx,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(tx),
		CASGuard: aggregates.NewCASGuard(tx),
		Outbox:   repos.NewOutboxRepo(tx, log),
	}
	injected := plain
	injected.Runner = runner
	injected.Hooks = hooks
	injected.RetryInterval = time.Millisecond
	injected.MaxAttempts = 3
	return aggregates.NewCartAggregate(aggregates.CartAggregateDeps{Base: plain}),
		aggregates.NewCartAggregate(aggregates.CartAggregateDeps{Base: injected})
}

func TestCheckoutRetriesConflictWithoutDoubleReserving(t *testing.T) {
	ctx := context.Background()
	tx := repotest.Tx(t, repotest.DB(t))
	actor := authz.Actor{UserID: uuid.New(), Role: authz.RoleClient}
	p := repotest.SeedProduct(t, ctx, tx, "4.00", 5)

	runner := &aggtest.InjectedTxRunner{
		Inner:              aggregates.NewGormTxRunner(tx),
		FailAfterBody:      aggregates.ConflictError("injected commit conflict"),
		FailAfterBodyTimes: 1,
	}
	hooks := &aggtest.HooksRecorder{}
	plain, injected := newInjectedCart(t, tx, runner, hooks)

	if _, err := plain.AddItem(ctx, domainagg.CartItemInput{Actor: actor, ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	o, err := injected.Checkout(ctx, actor)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if runner.BeginCalls != 2 || runner.CommitCalls != 1 {
		t.Fatalf("runner: begin=%d commit=%d", runner.BeginCalls, runner.CommitCalls)
	}
	if hooks.Count(aggtest.HookConflict, checkoutOp) != 1 || hooks.LastStatus(checkoutOp) != "success" {
		t.Fatalf("hooks: %+v", hooks.Events())
	}
	if got := repotest.ReloadProduct(t, ctx, tx, p.ID).Stock; got != 3 {
		t.Fatalf("stock should drop once, got %d", got)
	}
	if len(o.Lines) != 1 || o.Lines[0].Quantity != 2 {
		t.Fatalf("order lines: %+v", o.Lines)
	}
}

func TestCheckoutPermanentFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	tx := repotest.Tx(t, repotest.DB(t))
	actor := authz.Actor{UserID: uuid.New(), Role: authz.RoleClient}
	p := repotest.SeedProduct(t, ctx, tx, "4.00", 5)

	runner := &aggtest.InjectedTxRunner{
		Inner:         aggregates.NewGormTxRunner(tx),
		FailAfterBody: errors.New("disk full"),
	}
	hooks := &aggtest.HooksRecorder{}
	plain, injected := newInjectedCart(t, tx, runner, hooks)

	if _, err := plain.AddItem(ctx, domainagg.CartItemInput{Actor: actor, ProductID: p.ID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := injected.Checkout(ctx, actor)
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if runner.BeginCalls != 1 {
		t.Fatalf("permanent failure retried: begin=%d", runner.BeginCalls)
	}
	if got := repotest.ReloadProduct(t, ctx, tx, p.ID).Stock; got != 5 {
		t.Fatalf("stock leaked: %d", got)
	}
	view, err := plain.Get(ctx, actor)
	if err != nil || len(view.Lines) != 1 {
		t.Fatalf("cart should be intact: %+v err=%v", view.Lines, err)
	}
}
