package orderexpiry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"github.com/yungbote/techwave-backend/internal/authz"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type fakeOrders struct {
	mu     sync.Mutex
	err    error
	calls  int
	actors []authz.Actor
}

func (f *fakeOrders) Cancel(_ context.Context, in domainagg.OrderRefInput) (*commerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.actors = append(f.actors, in.Actor)
	if f.err != nil {
		return nil, f.err
	}
	return &commerce.Order{ID: in.OrderID, Status: commerce.OrderStatusCancelled}, nil
}

func runExpiry(t *testing.T, orders *fakeOrders, in Input) (CancelResult, error) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Orders: orders}
	env.RegisterActivityWithOptions(acts.Cancel, activity.RegisterOptions{Name: ActivityCancel})

	env.ExecuteWorkflow(Workflow, in)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		return CancelResult{}, err
	}
	var out CancelResult
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("GetWorkflowResult: %v", err)
	}
	return out, nil
}

func TestWorkflowCancelsPendingOrderAfterTTL(t *testing.T) {
	orders := &fakeOrders{}
	orderID := uuid.New()
	out, err := runExpiry(t, orders, Input{OrderID: orderID.String(), TTL: 24 * time.Hour})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	if out.Result != ResultCancelled || out.OrderID != orderID.String() {
		t.Fatalf("unexpected result %+v", out)
	}
	if orders.calls != 1 {
		t.Fatalf("expected one cancel, got %d", orders.calls)
	}
	if orders.actors[0].Role != authz.RoleAdmin || orders.actors[0].UserID != uuid.Nil {
		t.Fatalf("expected system actor, got %+v", orders.actors[0])
	}
}

func TestWorkflowSkipsOrdersNoLongerPending(t *testing.T) {
	for name, code := range map[string]domainagg.ErrorCode{
		"already paid": domainagg.CodeInvalidStateTransition,
		"deleted":      domainagg.CodeNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			orders := &fakeOrders{err: domainagg.NewError(code, "Commerce.OrderAggregate.Cancel", name, nil)}
			out, err := runExpiry(t, orders, Input{OrderID: uuid.NewString(), TTL: time.Hour})
			if err != nil {
				t.Fatalf("workflow: %v", err)
			}
			if out.Result != ResultSkipped {
				t.Fatalf("expected skipped, got %+v", out)
			}
		})
	}
}

func TestWorkflowRejectsMissingOrderID(t *testing.T) {
	if _, err := runExpiry(t, &fakeOrders{}, Input{}); err == nil {
		t.Fatalf("expected error for missing order id")
	}
}

func TestActivityReturnsUnexpectedErrors(t *testing.T) {
	boom := errors.New("db down")
	acts := &Activities{Log: logger.Nop(), Orders: &fakeOrders{err: boom}}
	if _, err := acts.Cancel(context.Background(), uuid.NewString()); !errors.Is(err, boom) {
		t.Fatalf("expected db error to surface for retry, got %v", err)
	}
	if _, err := acts.Cancel(context.Background(), "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestWorkflowIDIsDeterministic(t *testing.T) {
	id := uuid.NewString()
	if WorkflowID(id) != "order-expiry-"+id {
		t.Fatalf("unexpected workflow id %q", WorkflowID(id))
	}
}
