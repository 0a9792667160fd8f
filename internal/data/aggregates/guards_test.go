package aggregates

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

func TestGuardedDescribesTheRow(t *testing.T) {
	id := uuid.New()
	g := Guarded{Table: "customer_order", ID: id, Statuses: []string{"pending", "processing"}}.AtVersion(4)
	want := "customer_order " + id.String() + " in status pending|processing at version 4"
	if g.String() != want {
		t.Fatalf("got %q want %q", g.String(), want)
	}
}

func TestCASGuardOrderStatusAndVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	o := testutil.SeedOrder(t, dbc.Ctx, tx, uuid.New(), commerce.OrderStatusPending, nil, nil)
	g := NewCASGuard(db)
	pending := Guarded{Table: "customer_order", ID: o.ID, Statuses: []string{commerce.OrderStatusPending}}

	ok, err := g.TryApply(dbc, pending.AtVersion(5), map[string]any{"status": commerce.OrderStatusPaid})
	if err != nil || ok {
		t.Fatalf("stale version should not match: ok=%v err=%v", ok, err)
	}
	if err := g.Apply(dbc, pending.AtVersion(0), map[string]any{"status": commerce.OrderStatusPaid, "version": 1}); err != nil {
		t.Fatalf("expected guarded update: %v", err)
	}

	err = MapError("op", g.Apply(dbc, pending, map[string]any{"status": commerce.OrderStatusCancelled}))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("cancelling a paid order through a pending guard must conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "changed concurrently") {
		t.Fatalf("conflict message: %v", err)
	}
}

func TestCASGuardRejectsMalformedGuards(t *testing.T) {
	g := NewCASGuard(nil)
	dbc := dbctx.Context{Ctx: context.Background()}
	cases := []Guarded{
		{Table: "", ID: uuid.New()},
		{Table: "payment", ID: uuid.Nil},
		{Table: "payment", ID: uuid.New(), Statuses: []string{}},
		Guarded{Table: "payment", ID: uuid.New()}.AtVersion(-1),
	}
	for _, c := range cases {
		if _, err := g.TryApply(dbc, c, map[string]any{}); !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
			t.Fatalf("%+v: expected validation error, got %v", c, err)
		}
	}
}
