package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

var CartAggregateContract = Contract{
	Name:             "Commerce.CartAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyOwnerScoped,
	Actions: []authz.Action{
		authz.ActionCartUse,
		authz.ActionOrderCreate,
	},
	Emits: []string{
		commerce.EventOrderCreated,
	},
	Notes: "Owns the per-user basket. Adding never reserves stock; Checkout reserves all lines or none.",
}

// CartAggregate owns the pre-order basket of a user.
type CartAggregate interface {
	Aggregate

	AddItem(ctx context.Context, in CartItemInput) (CartView, error)
	UpdateQuantity(ctx context.Context, in CartItemInput) (CartView, error)
	RemoveItem(ctx context.Context, in CartItemInput) (CartView, error)
	Clear(ctx context.Context, actor Actor) error

	Get(ctx context.Context, actor Actor) (CartView, error)
	Total(ctx context.Context, actor Actor) (decimal.Decimal, error)
	ItemCount(ctx context.Context, actor Actor) (int, error)

	// Checkout reserves every line, creates a pending order and clears the cart atomically.
	Checkout(ctx context.Context, actor Actor) (*commerce.Order, error)
}

type CartItemInput struct {
	Actor     Actor
	ProductID uuid.UUID
	Quantity  int
}

// CartView prices lines at the current catalog price.
type CartView struct {
	CartID    uuid.UUID       `json:"cart_id"`
	Lines     []CartLineView  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type CartLineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}
