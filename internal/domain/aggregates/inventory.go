package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

var InventoryLedgerContract = Contract{
	Name:             "Commerce.InventoryLedger",
	WriteTxOwnership: WriteTxComposable,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Actions: []authz.Action{
		authz.ActionStockRestock,
	},
	Notes: "Owns per-product stock counters. Reserve is a guarded decrement; stock never goes negative.",
}

// InventoryLedger owns per-product stock.
//
// Write failures carry CodeValidation, CodeNotFound, CodeInsufficientStock,
// CodeUnauthorized, CodeConflict, CodeRetryable or CodeInternal.
type InventoryLedger interface {
	Aggregate
	InventoryTx

	// Reserve decrements stock when at least Quantity units are available.
	Reserve(ctx context.Context, in StockChangeInput) (StockChangeResult, error)
	// Release increments stock. It has no upper bound.
	Release(ctx context.Context, in StockChangeInput) (StockChangeResult, error)
	// AdjustForQuantityChange applies new-old as one reserve or release.
	AdjustForQuantityChange(ctx context.Context, in AdjustStockInput) (StockChangeResult, error)
	// Restock is the privileged catalog entry point for receiving goods.
	Restock(ctx context.Context, in RestockInput) (StockChangeResult, error)
}

// InventoryTx is the transaction-scoped face of the ledger. Other aggregates call it
// with their own dbctx so stock changes commit or roll back with their writes.
type InventoryTx interface {
	// LockProducts locks product rows FOR UPDATE in ascending id order.
	LockProducts(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*commerce.Product, error)
	ReserveTx(dbc dbctx.Context, in StockChangeInput) (StockChangeResult, error)
	ReleaseTx(dbc dbctx.Context, in StockChangeInput) (StockChangeResult, error)
	AdjustTx(dbc dbctx.Context, in AdjustStockInput) (StockChangeResult, error)
}

// StockRef ties a stock movement to the entity that caused it.
type StockRef struct {
	Type string
	ID   uuid.UUID
}

type StockChangeInput struct {
	ProductID uuid.UUID
	Quantity  int
	Ref       StockRef
}

type AdjustStockInput struct {
	ProductID   uuid.UUID
	OldQuantity int
	NewQuantity int
	Ref         StockRef
}

type RestockInput struct {
	Actor     Actor
	ProductID uuid.UUID
	Quantity  int
}

type StockChangeResult struct {
	ProductID  uuid.UUID
	Delta      int
	StockAfter int
}
