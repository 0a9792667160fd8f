package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

type InventoryLedgerDeps struct {
	Base BaseDeps

	Products  repos.ProductRepo
	Movements repos.StockMovementRepo
}

type inventoryLedger struct {
	deps InventoryLedgerDeps
}

func NewInventoryLedger(deps InventoryLedgerDeps) domainagg.InventoryLedger {
	deps.Base = deps.Base.withDefaults()
	if deps.Products == nil {
		deps.Products = repos.NewProductRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Movements == nil {
		deps.Movements = repos.NewStockMovementRepo(deps.Base.DB, deps.Base.Log)
	}
	return &inventoryLedger{deps: deps}
}

func (l *inventoryLedger) Contract() domainagg.Contract {
	return domainagg.InventoryLedgerContract
}

func (l *inventoryLedger) LockProducts(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*commerce.Product, error) {
	rows, err := l.deps.Products.LockByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*commerce.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (l *inventoryLedger) ReserveTx(dbc dbctx.Context, in domainagg.StockChangeInput) (domainagg.StockChangeResult, error) {
	return l.reserve(dbc, "Commerce.InventoryLedger.Reserve", in, commerce.StockReasonReserve)
}

func (l *inventoryLedger) reserve(dbc dbctx.Context, op string, in domainagg.StockChangeInput, reason string) (domainagg.StockChangeResult, error) {
	var out domainagg.StockChangeResult
	if err := validateStockChange(op, in.ProductID, in.Quantity); err != nil {
		return out, err
	}
	ok, err := l.deps.Products.DecrementStockIfAvailable(dbc, in.ProductID, in.Quantity)
	if err != nil {
		return out, err
	}
	if !ok {
		p, err := l.deps.Products.GetByID(dbc, in.ProductID)
		if err != nil {
			return out, err
		}
		if p == nil {
			return out, productNotFound(op, in.ProductID)
		}
		return out, domainagg.InsufficientStock(op, in.ProductID, in.Quantity, p.Stock)
	}
	return l.record(dbc, in.ProductID, -in.Quantity, reason, in.Ref)
}

func (l *inventoryLedger) ReleaseTx(dbc dbctx.Context, in domainagg.StockChangeInput) (domainagg.StockChangeResult, error) {
	return l.release(dbc, "Commerce.InventoryLedger.Release", in, commerce.StockReasonRelease)
}

func (l *inventoryLedger) release(dbc dbctx.Context, op string, in domainagg.StockChangeInput, reason string) (domainagg.StockChangeResult, error) {
	var out domainagg.StockChangeResult
	if err := validateStockChange(op, in.ProductID, in.Quantity); err != nil {
		return out, err
	}
	ok, err := l.deps.Products.IncrementStock(dbc, in.ProductID, in.Quantity)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, productNotFound(op, in.ProductID)
	}
	return l.record(dbc, in.ProductID, in.Quantity, reason, in.Ref)
}

func (l *inventoryLedger) AdjustTx(dbc dbctx.Context, in domainagg.AdjustStockInput) (domainagg.StockChangeResult, error) {
	const op = "Commerce.InventoryLedger.AdjustForQuantityChange"
	var out domainagg.StockChangeResult
	if in.ProductID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing product_id", nil)
	}
	if in.OldQuantity < 0 || in.NewQuantity < 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "quantities must be >= 0", nil)
	}
	delta := in.NewQuantity - in.OldQuantity
	switch {
	case delta > 0:
		return l.reserve(dbc, op, domainagg.StockChangeInput{ProductID: in.ProductID, Quantity: delta, Ref: in.Ref}, commerce.StockReasonAdjust)
	case delta < 0:
		return l.release(dbc, op, domainagg.StockChangeInput{ProductID: in.ProductID, Quantity: -delta, Ref: in.Ref}, commerce.StockReasonAdjust)
	}
	p, err := l.deps.Products.GetByID(dbc, in.ProductID)
	if err != nil {
		return out, err
	}
	if p == nil {
		return out, productNotFound(op, in.ProductID)
	}
	return domainagg.StockChangeResult{ProductID: p.ID, StockAfter: p.Stock}, nil
}

func (l *inventoryLedger) Reserve(ctx context.Context, in domainagg.StockChangeInput) (domainagg.StockChangeResult, error) {
	var out domainagg.StockChangeResult
	if err := validateStockChange("Commerce.InventoryLedger.Reserve", in.ProductID, in.Quantity); err != nil {
		return out, err
	}
	err := executeWrite(ctx, l.deps.Base, "Commerce.InventoryLedger.Reserve", func(dbc dbctx.Context) error {
		var err error
		out, err = l.ReserveTx(dbc, in)
		return err
	})
	return out, err
}

func (l *inventoryLedger) Release(ctx context.Context, in domainagg.StockChangeInput) (domainagg.StockChangeResult, error) {
	var out domainagg.StockChangeResult
	if err := validateStockChange("Commerce.InventoryLedger.Release", in.ProductID, in.Quantity); err != nil {
		return out, err
	}
	err := executeWrite(ctx, l.deps.Base, "Commerce.InventoryLedger.Release", func(dbc dbctx.Context) error {
		var err error
		out, err = l.ReleaseTx(dbc, in)
		return err
	})
	return out, err
}

func (l *inventoryLedger) AdjustForQuantityChange(ctx context.Context, in domainagg.AdjustStockInput) (domainagg.StockChangeResult, error) {
	var out domainagg.StockChangeResult
	err := executeWrite(ctx, l.deps.Base, "Commerce.InventoryLedger.AdjustForQuantityChange", func(dbc dbctx.Context) error {
		var err error
		out, err = l.AdjustTx(dbc, in)
		return err
	})
	return out, err
}

func (l *inventoryLedger) Restock(ctx context.Context, in domainagg.RestockInput) (domainagg.StockChangeResult, error) {
	const op = "Commerce.InventoryLedger.Restock"
	var out domainagg.StockChangeResult
	if err := authorize(l.deps.Base, op, in.Actor, authz.ActionStockRestock, authz.Resource{Kind: "product", ID: in.ProductID}); err != nil {
		return out, err
	}
	if err := validateStockChange(op, in.ProductID, in.Quantity); err != nil {
		return out, err
	}
	err := executeWrite(ctx, l.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		out, err = l.release(dbc, op, domainagg.StockChangeInput{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Ref:       domainagg.StockRef{Type: "restock", ID: in.Actor.UserID},
		}, commerce.StockReasonRestock)
		return err
	})
	return out, err
}

// record re-reads the counter inside the tx and appends the audit row.
func (l *inventoryLedger) record(dbc dbctx.Context, productID uuid.UUID, delta int, reason string, ref domainagg.StockRef) (domainagg.StockChangeResult, error) {
	p, err := l.deps.Products.GetByID(dbc, productID)
	if err != nil {
		return domainagg.StockChangeResult{}, err
	}
	if p == nil {
		return domainagg.StockChangeResult{}, productNotFound("Commerce.InventoryLedger", productID)
	}
	mv := &commerce.StockMovement{
		ProductID:  productID,
		Delta:      delta,
		Reason:     reason,
		RefType:    ref.Type,
		StockAfter: p.Stock,
		CreatedAt:  l.deps.Base.Now(),
	}
	if ref.ID != uuid.Nil {
		id := ref.ID
		mv.RefID = &id
	}
	if err := l.deps.Movements.Create(dbc, []*commerce.StockMovement{mv}); err != nil {
		return domainagg.StockChangeResult{}, err
	}
	return domainagg.StockChangeResult{ProductID: productID, Delta: delta, StockAfter: p.Stock}, nil
}

func validateStockChange(op string, productID uuid.UUID, qty int) error {
	if productID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing product_id", nil)
	}
	if qty <= 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("quantity must be > 0, got %d", qty), nil)
	}
	return nil
}

func productNotFound(op string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("product not found: %s", id), nil)
}
