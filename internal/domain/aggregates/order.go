package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

var OrderAggregateContract = Contract{
	Name:             "Commerce.OrderAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyOwnerScoped,
	Actions: []authz.Action{
		authz.ActionOrderCreate,
		authz.ActionOrderRead,
		authz.ActionOrderCancel,
		authz.ActionOrderMutateLines,
		authz.ActionOrderRecompute,
		authz.ActionOrderUpdateStatus,
	},
	Emits: []string{
		commerce.EventOrderCreated,
		commerce.EventOrderCancelled,
		commerce.EventOrderStatusChanged,
		commerce.EventOrderLinesChanged,
	},
	Notes: "Owns order status transitions, line edits with their stock effects, and total recomputation.",
}

// OrderAggregate owns the order state machine.
type OrderAggregate interface {
	Aggregate
	OrderStatusTx

	// Create reserves stock for every line and creates a pending order, all or nothing.
	Create(ctx context.Context, in CreateOrderInput) (*commerce.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*commerce.Order, error)
	List(ctx context.Context, in ListOrdersInput) ([]*commerce.Order, error)

	// Cancel is legal only from pending and releases every line's stock in the same transaction.
	Cancel(ctx context.Context, in OrderRefInput) (*commerce.Order, error)
	// MutateLines applies a batch of line edits atomically and recomputes the total.
	MutateLines(ctx context.Context, in MutateLinesInput) (*commerce.Order, error)
	// RemoveLine releases the line's stock, deletes it and recomputes the total.
	RemoveLine(ctx context.Context, in RemoveLineInput) (*commerce.Order, error)
	// RecomputeTotal resets total to the sum of stored line subtotals.
	RecomputeTotal(ctx context.Context, in OrderRefInput) (*commerce.Order, error)
	// ApplyStatus is the staff-facing status mutator. Cancellation routes through Cancel.
	ApplyStatus(ctx context.Context, in ApplyStatusInput) (*commerce.Order, error)
}

// OrderStatusTx is the narrow mutator the payment and shipment cascades call inside
// their own transaction. It locks the order, enforces the transition table and reports
// whether anything changed.
type OrderStatusTx interface {
	ApplyStatusTx(dbc dbctx.Context, orderID uuid.UUID, status string) (*commerce.Order, bool, error)
}

type OrderLineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	Actor Actor
	Lines []OrderLineInput
}

type ListOrdersInput struct {
	Actor  Actor
	Status string
	Limit  int
	Offset int
}

type OrderRefInput struct {
	Actor   Actor
	OrderID uuid.UUID
}

type LineEditOp string

const (
	LineEditAdd    LineEditOp = "add"
	LineEditUpdate LineEditOp = "update"
	LineEditRemove LineEditOp = "remove"
)

// LineEdit addresses a line by LineID, or by ProductID for adds.
type LineEdit struct {
	Op        LineEditOp
	LineID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

type MutateLinesInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Edits   []LineEdit
}

type RemoveLineInput struct {
	Actor   Actor
	OrderID uuid.UUID
	LineID  uuid.UUID
}

type ApplyStatusInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Status  string
}
