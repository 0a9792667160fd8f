package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

type CartAggregateDeps struct {
	Base BaseDeps

	Carts      repos.CartRepo
	CartLines  repos.CartLineRepo
	Products   repos.ProductRepo
	Orders     repos.OrderRepo
	OrderLines repos.OrderLineRepo
	Inventory  domainagg.InventoryTx
}

type cartAggregate struct {
	deps CartAggregateDeps
}

func NewCartAggregate(deps CartAggregateDeps) domainagg.CartAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Carts == nil {
		deps.Carts = repos.NewCartRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.CartLines == nil {
		deps.CartLines = repos.NewCartLineRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Products == nil {
		deps.Products = repos.NewProductRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Orders == nil {
		deps.Orders = repos.NewOrderRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.OrderLines == nil {
		deps.OrderLines = repos.NewOrderLineRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Inventory == nil {
		deps.Inventory = NewInventoryLedger(InventoryLedgerDeps{Base: deps.Base, Products: deps.Products})
	}
	return &cartAggregate{deps: deps}
}

func (a *cartAggregate) Contract() domainagg.Contract {
	return domainagg.CartAggregateContract
}

func (a *cartAggregate) AddItem(ctx context.Context, in domainagg.CartItemInput) (domainagg.CartView, error) {
	const op = "Commerce.Cart.AddItem"
	if err := a.checkItem(op, in, false); err != nil {
		return domainagg.CartView{}, err
	}
	var out domainagg.CartView
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireProduct(dbc, op, in.ProductID); err != nil {
			return err
		}
		cart, err := a.lockCart(dbc, in.Actor.UserID)
		if err != nil {
			return err
		}
		line, err := a.deps.CartLines.GetByCartAndProduct(dbc, cart.ID, in.ProductID)
		if err != nil {
			return err
		}
		if line != nil {
			if err := a.deps.CartLines.SetQuantity(dbc, line.ID, line.Quantity+in.Quantity); err != nil {
				return err
			}
		} else {
			pos, err := a.deps.CartLines.NextPosition(dbc, cart.ID)
			if err != nil {
				return err
			}
			now := a.deps.Base.Now()
			if err := a.deps.CartLines.Create(dbc, &commerce.CartLine{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: in.ProductID,
				Quantity:  in.Quantity,
				Position:  pos,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		if err := a.deps.Carts.Touch(dbc, cart.ID); err != nil {
			return err
		}
		out, err = a.view(dbc, cart.ID)
		return err
	})
	return out, err
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (a *cartAggregate) UpdateQuantity(ctx context.Context, in domainagg.CartItemInput) (domainagg.CartView, error) {
	const op = "Commerce.Cart.UpdateQuantity"
	if err := a.checkItem(op, in, true); err != nil {
		return domainagg.CartView{}, err
	}
	if in.Quantity <= 0 {
		return a.remove(ctx, op, in)
	}
	var out domainagg.CartView
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireProduct(dbc, op, in.ProductID); err != nil {
			return err
		}
		cart, err := a.lockCart(dbc, in.Actor.UserID)
		if err != nil {
			return err
		}
		line, err := a.deps.CartLines.GetByCartAndProduct(dbc, cart.ID, in.ProductID)
		if err != nil {
			return err
		}
		if line == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("product %s is not in the cart", in.ProductID), nil)
		}
		if err := a.deps.CartLines.SetQuantity(dbc, line.ID, in.Quantity); err != nil {
			return err
		}
		if err := a.deps.Carts.Touch(dbc, cart.ID); err != nil {
			return err
		}
		out, err = a.view(dbc, cart.ID)
		return err
	})
	return out, err
}

// RemoveItem drops the product's line. Removing an absent product is a no-op.
func (a *cartAggregate) RemoveItem(ctx context.Context, in domainagg.CartItemInput) (domainagg.CartView, error) {
	const op = "Commerce.Cart.RemoveItem"
	if err := a.checkItem(op, in, true); err != nil {
		return domainagg.CartView{}, err
	}
	return a.remove(ctx, op, in)
}

func (a *cartAggregate) remove(ctx context.Context, op string, in domainagg.CartItemInput) (domainagg.CartView, error) {
	var out domainagg.CartView
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cart, err := a.lockCart(dbc, in.Actor.UserID)
		if err != nil {
			return err
		}
		n, err := a.deps.CartLines.DeleteByCartAndProduct(dbc, cart.ID, in.ProductID)
		if err != nil {
			return err
		}
		if n > 0 {
			if err := a.deps.Carts.Touch(dbc, cart.ID); err != nil {
				return err
			}
		}
		out, err = a.view(dbc, cart.ID)
		return err
	})
	return out, err
}

func (a *cartAggregate) Clear(ctx context.Context, actor domainagg.Actor) error {
	const op = "Commerce.Cart.Clear"
	if err := a.checkActor(op, actor); err != nil {
		return err
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cart, err := a.deps.Carts.GetByOwner(dbc, actor.UserID)
		if err != nil || cart == nil {
			return err
		}
		if _, err := a.deps.Carts.LockByID(dbc, cart.ID); err != nil {
			return err
		}
		_, err = a.deps.CartLines.DeleteByCart(dbc, cart.ID)
		return err
	})
}

func (a *cartAggregate) Get(ctx context.Context, actor domainagg.Actor) (domainagg.CartView, error) {
	const op = "Commerce.Cart.Get"
	if err := a.checkActor(op, actor); err != nil {
		return domainagg.CartView{}, err
	}
	dbc := readTx(ctx, a.deps.Base)
	cart, err := a.deps.Carts.GetByOwner(dbc, actor.UserID)
	if err != nil {
		return domainagg.CartView{}, MapError(op, err)
	}
	if cart == nil {
		return domainagg.CartView{Lines: []domainagg.CartLineView{}, Total: decimal.Zero}, nil
	}
	out, err := a.view(dbc, cart.ID)
	if err != nil {
		return domainagg.CartView{}, MapError(op, err)
	}
	return out, nil
}

func (a *cartAggregate) Total(ctx context.Context, actor domainagg.Actor) (decimal.Decimal, error) {
	v, err := a.Get(ctx, actor)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Total, nil
}

func (a *cartAggregate) ItemCount(ctx context.Context, actor domainagg.Actor) (int, error) {
	v, err := a.Get(ctx, actor)
	if err != nil {
		return 0, err
	}
	return v.ItemCount, nil
}

func (a *cartAggregate) Checkout(ctx context.Context, actor domainagg.Actor) (*commerce.Order, error) {
	const op = "Commerce.Cart.Checkout"
	if err := a.checkActor(op, actor); err != nil {
		return nil, err
	}
	if err := authorize(a.deps.Base, op, actor, authz.ActionOrderCreate, authz.Resource{Kind: "order", OwnerUserID: actor.UserID}); err != nil {
		return nil, err
	}
	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cart, err := a.deps.Carts.GetByOwner(dbc, actor.UserID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domainagg.NewError(domainagg.CodeValidation, op, "cart is empty", nil)
		}
		if _, err := a.deps.Carts.LockByID(dbc, cart.ID); err != nil {
			return err
		}
		lines, err := a.deps.CartLines.ListByCart(dbc, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domainagg.NewError(domainagg.CodeValidation, op, "cart is empty", nil)
		}
		items := make([]domainagg.OrderLineInput, 0, len(lines))
		for _, l := range lines {
			items = append(items, domainagg.OrderLineInput{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		order, err := placeOrder(dbc, a.deps.Base, a.deps.Inventory, a.deps.Orders, a.deps.OrderLines, op, actor.UserID, items)
		if err != nil {
			return err
		}
		if _, err := a.deps.CartLines.DeleteByCart(dbc, cart.ID); err != nil {
			return err
		}
		out = order
		return nil
	})
	return out, err
}

// view prices each line at the product's current price. Lines whose product no
// longer exists are left out.
func (a *cartAggregate) view(dbc dbctx.Context, cartID uuid.UUID) (domainagg.CartView, error) {
	out := domainagg.CartView{CartID: cartID, Lines: []domainagg.CartLineView{}, Total: decimal.Zero}
	lines, err := a.deps.CartLines.ListByCart(dbc, cartID)
	if err != nil {
		return out, err
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := a.deps.Products.GetByIDs(dbc, ids)
	if err != nil {
		return out, err
	}
	byID := make(map[uuid.UUID]*commerce.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, l := range lines {
		p := byID[l.ProductID]
		if p == nil {
			continue
		}
		lineTotal := commerce.LineSubtotal(p.UnitPrice, l.Quantity)
		out.Lines = append(out.Lines, domainagg.CartLineView{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			UnitPrice: p.UnitPrice,
			LineTotal: lineTotal,
		})
		out.Total = out.Total.Add(lineTotal)
		out.ItemCount += l.Quantity
	}
	return out, nil
}

func (a *cartAggregate) lockCart(dbc dbctx.Context, owner uuid.UUID) (*commerce.Cart, error) {
	cart, err := a.deps.Carts.EnsureForOwner(dbc, owner)
	if err != nil {
		return nil, err
	}
	return a.deps.Carts.LockByID(dbc, cart.ID)
}

func (a *cartAggregate) requireProduct(dbc dbctx.Context, op string, id uuid.UUID) error {
	p, err := a.deps.Products.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if p == nil {
		return productNotFound(op, id)
	}
	return nil
}

func (a *cartAggregate) checkActor(op string, actor domainagg.Actor) error {
	if actor.UserID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeUnauthorized, op, "cart requires an authenticated user", nil)
	}
	return authorize(a.deps.Base, op, actor, authz.ActionCartUse, authz.Resource{Kind: "cart", OwnerUserID: actor.UserID})
}

func (a *cartAggregate) checkItem(op string, in domainagg.CartItemInput, allowZero bool) error {
	if err := a.checkActor(op, in.Actor); err != nil {
		return err
	}
	if in.ProductID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing product_id", nil)
	}
	if !allowZero && in.Quantity <= 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("invalid quantity %d", in.Quantity), nil)
	}
	return nil
}
