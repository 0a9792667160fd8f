package aggregates

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

func TestCartItemsDoNotReserveStock(t *testing.T) {
	s := newTestStack(t)
	actor := client()
	a := testutil.SeedProduct(t, s.ctx, s.tx, "3.00", 2)
	b := testutil.SeedProduct(t, s.ctx, s.tx, "0.50", 100)

	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: a.ID, Quantity: 5}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: b.ID, Quantity: 4}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	view, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: a.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add a again: %v", err)
	}
	if len(view.Lines) != 2 || view.Lines[0].ProductID != a.ID || view.Lines[0].Quantity != 6 {
		t.Fatalf("unexpected lines: %+v", view.Lines)
	}
	if view.ItemCount != 10 || !view.Total.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("count=%d total=%s", view.ItemCount, view.Total)
	}
	if got := testutil.ReloadProduct(t, s.ctx, s.tx, a.ID).Stock; got != 2 {
		t.Fatalf("cart must not reserve: stock=%d", got)
	}

	view, err = s.carts.UpdateQuantity(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: a.ID, Quantity: 1})
	if err != nil || view.Lines[0].Quantity != 1 {
		t.Fatalf("update quantity: %+v err=%v", view.Lines, err)
	}
	view, err = s.carts.UpdateQuantity(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: b.ID, Quantity: 0})
	if err != nil || len(view.Lines) != 1 {
		t.Fatalf("zero quantity should remove: %+v err=%v", view.Lines, err)
	}
	if _, err := s.carts.UpdateQuantity(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: b.ID, Quantity: 2}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("update absent line: got %v", err)
	}
	if _, err := s.carts.RemoveItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: b.ID}); err != nil {
		t.Fatalf("removing an absent line is a no-op: %v", err)
	}

	total, err := s.carts.Total(s.ctx, actor)
	if err != nil || !total.Equal(decimal.RequireFromString("3.00")) {
		t.Fatalf("total=%s err=%v", total, err)
	}
	if err := s.carts.Clear(s.ctx, actor); err != nil {
		t.Fatalf("clear: %v", err)
	}
	n, err := s.carts.ItemCount(s.ctx, actor)
	if err != nil || n != 0 {
		t.Fatalf("item count after clear: %d err=%v", n, err)
	}
}

func TestCartRejectsBadInput(t *testing.T) {
	s := newTestStack(t)
	actor := client()

	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: uuid.New(), Quantity: 1}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown product: got %v", err)
	}
	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: uuid.New(), Quantity: 0}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("zero quantity: got %v", err)
	}
	if _, err := s.carts.Get(s.ctx, authz.Actor{Role: authz.RoleClient}); !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("anonymous cart: got %v", err)
	}
	view, err := s.carts.Get(s.ctx, actor)
	if err != nil || view.ItemCount != 0 || len(view.Lines) != 0 {
		t.Fatalf("missing cart should read as empty: %+v err=%v", view, err)
	}
}

func TestCartCheckoutCreatesOrderAndClearsCart(t *testing.T) {
	s := newTestStack(t)
	actor := client()
	a := testutil.SeedProduct(t, s.ctx, s.tx, "12.00", 3)
	b := testutil.SeedProduct(t, s.ctx, s.tx, "1.00", 3)

	if _, err := s.carts.Checkout(s.ctx, actor); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("empty checkout: got %v", err)
	}

	for _, item := range []domainagg.CartItemInput{
		{Actor: actor, ProductID: a.ID, Quantity: 2},
		{Actor: actor, ProductID: b.ID, Quantity: 3},
	} {
		if _, err := s.carts.AddItem(s.ctx, item); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	o, err := s.carts.Checkout(s.ctx, actor)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.Status != commerce.OrderStatusPending || len(o.Lines) != 2 || !o.Total.Equal(decimal.RequireFromString("27.00")) {
		t.Fatalf("order: status=%s lines=%d total=%s", o.Status, len(o.Lines), o.Total)
	}
	if got := testutil.ReloadProduct(t, s.ctx, s.tx, a.ID).Stock; got != 1 {
		t.Fatalf("stock a: %d", got)
	}
	if got := testutil.ReloadProduct(t, s.ctx, s.tx, b.ID).Stock; got != 0 {
		t.Fatalf("stock b: %d", got)
	}
	view, err := s.carts.Get(s.ctx, actor)
	if err != nil || len(view.Lines) != 0 {
		t.Fatalf("cart should be empty after checkout: %+v err=%v", view.Lines, err)
	}
}

func TestCartCheckoutIsAtomicOnShortage(t *testing.T) {
	s := newTestStack(t)
	actor := client()
	a := testutil.SeedProduct(t, s.ctx, s.tx, "5.00", 10)
	b := testutil.SeedProduct(t, s.ctx, s.tx, "5.00", 1)

	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: a.ID, Quantity: 4}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if _, err := s.carts.AddItem(s.ctx, domainagg.CartItemInput{Actor: actor, ProductID: b.ID, Quantity: 2}); err != nil {
		t.Fatalf("add b: %v", err)
	}

	_, err := s.carts.Checkout(s.ctx, actor)
	if !domainagg.IsCode(err, domainagg.CodeInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if short, ok := domainagg.ShortageOf(err); !ok || short.ProductID != b.ID {
		t.Fatalf("shortage should name product b: %+v", short)
	}
	if got := testutil.ReloadProduct(t, s.ctx, s.tx, a.ID).Stock; got != 10 {
		t.Fatalf("stock a leaked: %d", got)
	}
	view, err := s.carts.Get(s.ctx, actor)
	if err != nil || len(view.Lines) != 2 {
		t.Fatalf("cart must survive a failed checkout: %+v err=%v", view.Lines, err)
	}
	orders, err := s.orders.List(s.ctx, domainagg.ListOrdersInput{Actor: actor})
	if err != nil || len(orders) != 0 {
		t.Fatalf("failed checkout created an order: n=%d err=%v", len(orders), err)
	}
}
