package aggregates

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

// testStack wires every aggregate onto one rolled-back transaction. Each write runs
// as a savepoint of it.
type testStack struct {
	ctx  context.Context
	tx   *gorm.DB
	base BaseDeps

	inventory domainagg.InventoryLedger
	orders    domainagg.OrderAggregate
	carts     domainagg.CartAggregate
	payments  domainagg.PaymentProcess
	shipments domainagg.ShipmentProcess

	outbox    repos.OutboxRepo
	movements repos.StockMovementRepo
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	base := BaseDeps{
		DB:       tx,
		Log:      log,
		Runner:   NewGormTxRunner(tx),
		CASGuard: NewCASGuard(tx),
		Outbox:   repos.NewOutboxRepo(tx, log),
	}
	allowPending := false

	inv := NewInventoryLedger(InventoryLedgerDeps{Base: base})
	orders := NewOrderAggregate(OrderAggregateDeps{Base: base, Inventory: inv})
	return &testStack{
		ctx:       context.Background(),
		tx:        tx,
		base:      base,
		inventory: inv,
		orders:    orders,
		carts:     NewCartAggregate(CartAggregateDeps{Base: base, Inventory: inv}),
		payments:  NewPaymentProcess(PaymentProcessDeps{Base: base, OrderStatus: orders}),
		shipments: NewShipmentProcess(ShipmentProcessDeps{Base: base, OrderStatus: orders, AllowPending: &allowPending}),
		outbox:    base.Outbox,
		movements: repos.NewStockMovementRepo(tx, log),
	}
}

func (s *testStack) dbc() dbctx.Context {
	return dbctx.Context{Ctx: s.ctx, Tx: s.tx}
}

func (s *testStack) eventTypes(t *testing.T, aggregateID uuid.UUID) []string {
	t.Helper()
	rows, err := s.outbox.ListByAggregate(s.dbc(), aggregateID)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}
	return out
}

func client() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: authz.RoleClient}
}

func operator() authz.Actor {
	return authz.Actor{UserID: uuid.New(), Role: authz.RoleOperator}
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
