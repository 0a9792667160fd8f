package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

func TestProductRepoGuardedStock(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProductRepo(db, testutil.Logger(t))

	p := testutil.SeedProduct(t, ctx, tx, "10.00", 5)

	ok, err := repo.DecrementStockIfAvailable(dbc, p.ID, 3)
	if err != nil || !ok {
		t.Fatalf("DecrementStockIfAvailable(3): ok=%v err=%v", ok, err)
	}
	ok, err = repo.DecrementStockIfAvailable(dbc, p.ID, 3)
	if err != nil {
		t.Fatalf("DecrementStockIfAvailable(3) second: %v", err)
	}
	if ok {
		t.Fatalf("expected guarded decrement to refuse when only 2 remain")
	}
	if got := testutil.ReloadProduct(t, ctx, tx, p.ID).Stock; got != 2 {
		t.Fatalf("stock after refused decrement: want=2 got=%d", got)
	}

	if ok, err := repo.DecrementStockIfAvailable(dbc, uuid.New(), 1); err != nil || ok {
		t.Fatalf("missing product should report ok=false: ok=%v err=%v", ok, err)
	}

	if ok, err := repo.IncrementStock(dbc, p.ID, 4); err != nil || !ok {
		t.Fatalf("IncrementStock: ok=%v err=%v", ok, err)
	}
	if got := testutil.ReloadProduct(t, ctx, tx, p.ID).Stock; got != 6 {
		t.Fatalf("stock after increment: want=6 got=%d", got)
	}
}

func TestProductRepoUpdateFieldsNeverWritesStock(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProductRepo(db, testutil.Logger(t))

	p := testutil.SeedProduct(t, ctx, tx, "10.00", 5)
	err := repo.UpdateFields(dbc, p.ID, map[string]interface{}{
		"name":       "renamed",
		"unit_price": decimal.RequireFromString("12.50"),
		"stock":      999,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: row=%v err=%v", got, err)
	}
	if got.Name != "renamed" || !got.UnitPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("unexpected product after update: %+v", got)
	}
	if got.Stock != 5 {
		t.Fatalf("stock must not change through UpdateFields: got=%d", got.Stock)
	}
}

func TestProductRepoLockAndList(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewProductRepo(db, testutil.Logger(t))

	cat := testutil.SeedCategory(t, ctx, tx, "laptops")
	a := testutil.SeedProduct(t, ctx, tx, "999.00", 1)
	b := testutil.SeedProduct(t, ctx, tx, "19.99", 10)
	if err := repo.UpdateFields(dbc, a.ID, map[string]interface{}{"category_id": cat.ID, "name": "Gaming Laptop"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	locked, err := repo.LockByIDs(dbc, []uuid.UUID{b.ID, a.ID, b.ID, uuid.Nil})
	if err != nil {
		t.Fatalf("LockByIDs: %v", err)
	}
	want := SortedUniqueIDs([]uuid.UUID{a.ID, b.ID})
	if len(locked) != 2 || locked[0].ID != want[0] || locked[1].ID != want[1] {
		t.Fatalf("LockByIDs should return rows in ascending id order")
	}

	rows, err := repo.List(dbc, ProductFilter{NameContains: "gaming"})
	if err != nil || len(rows) != 1 || rows[0].ID != a.ID {
		t.Fatalf("List by name: err=%v rows=%d", err, len(rows))
	}
	rows, err = repo.List(dbc, ProductFilter{CategoryID: &cat.ID})
	if err != nil || len(rows) != 1 || rows[0].ID != a.ID {
		t.Fatalf("List by category: err=%v rows=%d", err, len(rows))
	}
	max := decimal.RequireFromString("100")
	rows, err = repo.List(dbc, ProductFilter{MaxPrice: &max})
	if err != nil {
		t.Fatalf("List by price: %v", err)
	}
	for _, r := range rows {
		if r.ID == a.ID {
			t.Fatalf("price filter should exclude the 999.00 product")
		}
	}
}

func TestStockMovementNetDelta(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewStockMovementRepo(db, testutil.Logger(t))

	productID := uuid.New()
	err := repo.Create(dbc, []*commerce.StockMovement{
		{ProductID: productID, Delta: -3, Reason: commerce.StockReasonReserve, StockAfter: 7},
		{ProductID: productID, Delta: 2, Reason: commerce.StockReasonRelease, StockAfter: 9},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sum, err := repo.NetDelta(dbc, productID); err != nil || sum != -1 {
		t.Fatalf("NetDelta: want=-1 got=%d err=%v", sum, err)
	}
	rows, err := repo.ListByProduct(dbc, productID, 10)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByProduct: err=%v rows=%d", err, len(rows))
	}
}
