package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

var PaymentProcessContract = Contract{
	Name:             "Commerce.PaymentProcess",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyOwnerScoped,
	Actions: []authz.Action{
		authz.ActionPaymentCreate,
		authz.ActionPaymentRead,
		authz.ActionPaymentComplete,
		authz.ActionPaymentCancel,
	},
	Emits: []string{
		commerce.EventPaymentCreated,
		commerce.EventPaymentCompleted,
		commerce.EventPaymentCancelled,
	},
	Notes: "Binds payment attempts to an order. Amount is captured from the order total; completion cascades the order to paid.",
}

// PaymentProcess owns payment attempts and the payment -> order cascade.
type PaymentProcess interface {
	Aggregate

	Create(ctx context.Context, in CreatePaymentInput) (*commerce.Payment, error)
	Complete(ctx context.Context, in PaymentRefInput) (PaymentResult, error)
	Cancel(ctx context.Context, in PaymentRefInput) (PaymentResult, error)

	Get(ctx context.Context, actor Actor, paymentID uuid.UUID) (*commerce.Payment, error)
	ListByOrder(ctx context.Context, actor Actor, orderID uuid.UUID) ([]*commerce.Payment, error)
}

// CreatePaymentInput.RequestedAmount is informational only; the captured amount is always the order total.
type CreatePaymentInput struct {
	Actor           Actor
	OrderID         uuid.UUID
	Method          string
	RequestedAmount *decimal.Decimal
}

type PaymentRefInput struct {
	Actor     Actor
	PaymentID uuid.UUID
}

type PaymentResult struct {
	Payment     *commerce.Payment `json:"payment"`
	OrderStatus string            `json:"order_status"`
}
