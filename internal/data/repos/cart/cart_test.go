package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

func TestCartRepoEnsureForOwnerIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewCartRepo(db, testutil.Logger(t))

	owner := uuid.New()
	first, err := repo.EnsureForOwner(dbc, owner)
	if err != nil || first == nil {
		t.Fatalf("EnsureForOwner: row=%v err=%v", first, err)
	}
	second, err := repo.EnsureForOwner(dbc, owner)
	if err != nil || second == nil {
		t.Fatalf("EnsureForOwner second: row=%v err=%v", second, err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one cart per owner, got %s and %s", first.ID, second.ID)
	}
	if got, err := repo.GetByOwner(dbc, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByOwner unknown: row=%v err=%v", got, err)
	}
}

func TestCartLineRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	carts := NewCartRepo(db, testutil.Logger(t))
	lines := NewCartLineRepo(db, testutil.Logger(t))

	c, err := carts.EnsureForOwner(dbc, uuid.New())
	if err != nil {
		t.Fatalf("EnsureForOwner: %v", err)
	}
	p1 := testutil.SeedProduct(t, ctx, tx, "5.00", 10)
	p2 := testutil.SeedProduct(t, ctx, tx, "7.00", 10)

	for _, p := range []*commerce.Product{p1, p2} {
		pos, err := lines.NextPosition(dbc, c.ID)
		if err != nil {
			t.Fatalf("NextPosition: %v", err)
		}
		if err := lines.Create(dbc, &commerce.CartLine{CartID: c.ID, ProductID: p.ID, Quantity: 1, Position: pos}); err != nil {
			t.Fatalf("Create line: %v", err)
		}
	}

	rows, err := lines.ListByCart(dbc, c.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByCart: err=%v rows=%d", err, len(rows))
	}
	if rows[0].ProductID != p1.ID || rows[1].ProductID != p2.ID {
		t.Fatalf("lines should be in insertion order")
	}

	if err := lines.SetQuantity(dbc, rows[0].ID, 4); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	got, err := lines.GetByCartAndProduct(dbc, c.ID, p1.ID)
	if err != nil || got == nil || got.Quantity != 4 {
		t.Fatalf("GetByCartAndProduct: row=%v err=%v", got, err)
	}

	if n, err := lines.DeleteByCartAndProduct(dbc, c.ID, p2.ID); err != nil || n != 1 {
		t.Fatalf("DeleteByCartAndProduct: n=%d err=%v", n, err)
	}
	if n, err := lines.DeleteByCart(dbc, c.ID); err != nil || n != 1 {
		t.Fatalf("DeleteByCart: n=%d err=%v", n, err)
	}
}
