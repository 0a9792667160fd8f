package aggregates

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

const orderTable = "customer_order"

type OrderAggregateDeps struct {
	Base BaseDeps

	Orders     repos.OrderRepo
	OrderLines repos.OrderLineRepo
	Inventory  domainagg.InventoryTx
}

type orderAggregate struct {
	deps OrderAggregateDeps
}

func NewOrderAggregate(deps OrderAggregateDeps) domainagg.OrderAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Orders == nil {
		deps.Orders = repos.NewOrderRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.OrderLines == nil {
		deps.OrderLines = repos.NewOrderLineRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Inventory == nil {
		deps.Inventory = NewInventoryLedger(InventoryLedgerDeps{Base: deps.Base})
	}
	return &orderAggregate{deps: deps}
}

func (a *orderAggregate) Contract() domainagg.Contract {
	return domainagg.OrderAggregateContract
}

func (a *orderAggregate) Create(ctx context.Context, in domainagg.CreateOrderInput) (*commerce.Order, error) {
	const op = "Commerce.Order.Create"
	if in.Actor.UserID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing owner user_id", nil)
	}
	if err := authorize(a.deps.Base, op, in.Actor, authz.ActionOrderCreate, authz.Resource{Kind: "order", OwnerUserID: in.Actor.UserID}); err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "order has no lines", nil)
	}
	for _, l := range in.Lines {
		if l.ProductID == uuid.Nil {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "line missing product_id", nil)
		}
		if l.Quantity <= 0 {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("invalid quantity %d", l.Quantity), nil)
		}
	}

	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		out, err = placeOrder(dbc, a.deps.Base, a.deps.Inventory, a.deps.Orders, a.deps.OrderLines, op, in.Actor.UserID, in.Lines)
		return err
	})
	return out, err
}

func (a *orderAggregate) Get(ctx context.Context, actor domainagg.Actor, orderID uuid.UUID) (*commerce.Order, error) {
	const op = "Commerce.Order.Get"
	o, err := a.deps.Orders.GetWithLines(readTx(ctx, a.deps.Base), orderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if o == nil {
		return nil, orderNotFound(op, orderID)
	}
	if err := authorize(a.deps.Base, op, actor, authz.ActionOrderRead, orderResource(o)); err != nil {
		return nil, err
	}
	return o, nil
}

func (a *orderAggregate) List(ctx context.Context, in domainagg.ListOrdersInput) ([]*commerce.Order, error) {
	const op = "Commerce.Order.List"
	f := repos.OrderFilter{Status: in.Status, Limit: in.Limit, Offset: in.Offset}
	if in.Status != "" && !commerce.IsOrderStatus(in.Status) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown status %q", in.Status), nil)
	}
	if !in.Actor.Privileged() {
		if in.Actor.UserID == uuid.Nil {
			return nil, domainagg.NewError(domainagg.CodeUnauthorized, op, "anonymous callers cannot list orders", nil)
		}
		owner := in.Actor.UserID
		f.OwnerUserID = &owner
	}
	rows, err := a.deps.Orders.List(readTx(ctx, a.deps.Base), f)
	if err != nil {
		return nil, MapError(op, err)
	}
	return rows, nil
}

func (a *orderAggregate) Cancel(ctx context.Context, in domainagg.OrderRefInput) (*commerce.Order, error) {
	const op = "Commerce.Order.Cancel"
	if in.OrderID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(a.deps.Base, op, in.Actor, authz.ActionOrderCancel, orderResource(o)); err != nil {
			return err
		}
		if commerce.NormalizeStatus(o.Status) != commerce.OrderStatusPending {
			return domainagg.Wrap(domainagg.CodeInvalidStateTransition, op, &commerce.TransitionError{From: o.Status, To: commerce.OrderStatusCancelled})
		}

		lines, err := a.deps.OrderLines.ListByOrder(dbc, o.ID)
		if err != nil {
			return err
		}
		if _, err := a.deps.Inventory.LockProducts(dbc, lineProductIDs(lines)); err != nil {
			return err
		}
		released := make([]map[string]any, 0, len(lines))
		for _, l := range sortLinesByProduct(lines) {
			if _, err := a.deps.Inventory.ReleaseTx(dbc, domainagg.StockChangeInput{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Ref:       domainagg.StockRef{Type: aggregateTypeOrder, ID: o.ID},
			}); err != nil {
				return err
			}
			released = append(released, map[string]any{"product_id": l.ProductID.String(), "quantity": l.Quantity})
		}

		from := o.Status
		if _, err := a.persistStatus(dbc, op, o, commerce.OrderStatusCancelled); err != nil {
			return err
		}
		if err := emit(a.deps.Base, dbc, pendingEvent{
			Type:          commerce.EventOrderCancelled,
			AggregateType: aggregateTypeOrder,
			AggregateID:   o.ID,
			Payload: map[string]any{
				"from":     from,
				"released": released,
			},
		}); err != nil {
			return err
		}
		out, err = a.deps.Orders.GetWithLines(dbc, o.ID)
		return err
	})
	return out, err
}

func (a *orderAggregate) MutateLines(ctx context.Context, in domainagg.MutateLinesInput) (*commerce.Order, error) {
	return a.mutateLines(ctx, "Commerce.Order.MutateLines", in)
}

func (a *orderAggregate) RemoveLine(ctx context.Context, in domainagg.RemoveLineInput) (*commerce.Order, error) {
	const op = "Commerce.Order.RemoveLine"
	if in.LineID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing line_id", nil)
	}
	return a.mutateLines(ctx, op, domainagg.MutateLinesInput{
		Actor:   in.Actor,
		OrderID: in.OrderID,
		Edits:   []domainagg.LineEdit{{Op: domainagg.LineEditRemove, LineID: in.LineID}},
	})
}

func (a *orderAggregate) mutateLines(ctx context.Context, op string, in domainagg.MutateLinesInput) (*commerce.Order, error) {
	if in.OrderID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	if err := validateLineEdits(op, in.Edits); err != nil {
		return nil, err
	}

	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(a.deps.Base, op, in.Actor, authz.ActionOrderMutateLines, orderResource(o)); err != nil {
			return err
		}
		if !commerce.LinesEditable(o.Status) {
			return domainagg.NewError(domainagg.CodeInvalidStateTransition, op, fmt.Sprintf("order lines cannot change in status %s", o.Status), nil)
		}

		lines, err := a.deps.OrderLines.ListByOrder(dbc, o.ID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*commerce.OrderLine, len(lines))
		byProduct := make(map[uuid.UUID]*commerce.OrderLine, len(lines))
		for _, l := range lines {
			byID[l.ID] = l
			byProduct[l.ProductID] = l
		}

		touched := make([]uuid.UUID, 0, len(in.Edits))
		for _, e := range in.Edits {
			if e.Op == domainagg.LineEditAdd {
				touched = append(touched, e.ProductID)
				continue
			}
			l, ok := byID[e.LineID]
			if !ok {
				return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order line not found: %s", e.LineID), nil)
			}
			touched = append(touched, l.ProductID)
		}
		products, err := a.deps.Inventory.LockProducts(dbc, touched)
		if err != nil {
			return err
		}

		ref := domainagg.StockRef{Type: aggregateTypeOrder, ID: o.ID}
		now := a.deps.Base.Now()
		for _, e := range in.Edits {
			switch e.Op {
			case domainagg.LineEditAdd:
				p := products[e.ProductID]
				if p == nil {
					return productNotFound(op, e.ProductID)
				}
				if _, err := a.deps.Inventory.ReserveTx(dbc, domainagg.StockChangeInput{ProductID: p.ID, Quantity: e.Quantity, Ref: ref}); err != nil {
					return err
				}
				if existing := byProduct[p.ID]; existing != nil {
					existing.Quantity += e.Quantity
					existing.UnitPrice = p.UnitPrice
					existing.Subtotal = commerce.LineSubtotal(p.UnitPrice, existing.Quantity)
					if err := a.deps.OrderLines.UpdateFields(dbc, existing.ID, lineUpdates(existing, now)); err != nil {
						return err
					}
					continue
				}
				l := &commerce.OrderLine{
					ID:        uuid.New(),
					OrderID:   o.ID,
					ProductID: p.ID,
					Quantity:  e.Quantity,
					UnitPrice: p.UnitPrice,
					Subtotal:  commerce.LineSubtotal(p.UnitPrice, e.Quantity),
					CreatedAt: now,
					UpdatedAt: now,
				}
				if _, err := a.deps.OrderLines.Create(dbc, []*commerce.OrderLine{l}); err != nil {
					return err
				}
				byID[l.ID] = l
				byProduct[l.ProductID] = l

			case domainagg.LineEditUpdate:
				l := byID[e.LineID]
				if l == nil {
					return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order line not found: %s", e.LineID), nil)
				}
				p := products[l.ProductID]
				if p == nil {
					return productNotFound(op, l.ProductID)
				}
				if _, err := a.deps.Inventory.AdjustTx(dbc, domainagg.AdjustStockInput{
					ProductID:   l.ProductID,
					OldQuantity: l.Quantity,
					NewQuantity: e.Quantity,
					Ref:         ref,
				}); err != nil {
					return err
				}
				l.Quantity = e.Quantity
				l.UnitPrice = p.UnitPrice
				l.Subtotal = commerce.LineSubtotal(p.UnitPrice, e.Quantity)
				if err := a.deps.OrderLines.UpdateFields(dbc, l.ID, lineUpdates(l, now)); err != nil {
					return err
				}

			case domainagg.LineEditRemove:
				l := byID[e.LineID]
				if l == nil {
					return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order line not found: %s", e.LineID), nil)
				}
				if _, err := a.deps.Inventory.ReleaseTx(dbc, domainagg.StockChangeInput{ProductID: l.ProductID, Quantity: l.Quantity, Ref: ref}); err != nil {
					return err
				}
				if _, err := a.deps.OrderLines.DeleteByID(dbc, l.ID); err != nil {
					return err
				}
				delete(byID, l.ID)
				delete(byProduct, l.ProductID)
			}
		}

		if err := a.recompute(dbc, o); err != nil {
			return err
		}
		if err := emit(a.deps.Base, dbc, pendingEvent{
			Type:          commerce.EventOrderLinesChanged,
			AggregateType: aggregateTypeOrder,
			AggregateID:   o.ID,
			Payload: map[string]any{
				"edits": len(in.Edits),
				"total": o.Total.StringFixed(2),
			},
		}); err != nil {
			return err
		}
		out, err = a.deps.Orders.GetWithLines(dbc, o.ID)
		return err
	})
	return out, err
}

func (a *orderAggregate) RecomputeTotal(ctx context.Context, in domainagg.OrderRefInput) (*commerce.Order, error) {
	const op = "Commerce.Order.RecomputeTotal"
	if in.OrderID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(a.deps.Base, op, in.Actor, authz.ActionOrderRecompute, orderResource(o)); err != nil {
			return err
		}
		if err := a.recompute(dbc, o); err != nil {
			return err
		}
		out, err = a.deps.Orders.GetWithLines(dbc, o.ID)
		return err
	})
	return out, err
}

// recompute sets total to the sum of stored subtotals. An unchanged total is not written.
func (a *orderAggregate) recompute(dbc dbctx.Context, o *commerce.Order) error {
	lines, err := a.deps.OrderLines.ListByOrder(dbc, o.ID)
	if err != nil {
		return err
	}
	total := commerce.SumSubtotals(lines)
	if total.Equal(o.Total) {
		return nil
	}
	guard := Guarded{Table: orderTable, ID: o.ID}.AtVersion(o.Version)
	if err := a.deps.Base.CASGuard.Apply(dbc, guard, map[string]any{
		"total":      total,
		"version":    o.Version + 1,
		"updated_at": a.deps.Base.Now(),
	}); err != nil {
		return err
	}
	o.Total = total
	o.Version++
	return nil
}

func (a *orderAggregate) ApplyStatus(ctx context.Context, in domainagg.ApplyStatusInput) (*commerce.Order, error) {
	const op = "Commerce.Order.ApplyStatus"
	to := commerce.NormalizeStatus(in.Status)
	if !commerce.IsOrderStatus(to) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown status %q", in.Status), nil)
	}
	if in.OrderID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	if to == commerce.OrderStatusCancelled {
		return a.Cancel(ctx, domainagg.OrderRefInput{Actor: in.Actor, OrderID: in.OrderID})
	}
	var out *commerce.Order
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := a.lockOrder(dbc, op, in.OrderID)
		if err != nil {
			return err
		}
		if err := authorize(a.deps.Base, op, in.Actor, authz.ActionOrderUpdateStatus, orderResource(o)); err != nil {
			return err
		}
		if _, err := a.persistStatus(dbc, op, o, to); err != nil {
			return err
		}
		out, err = a.deps.Orders.GetWithLines(dbc, o.ID)
		return err
	})
	return out, err
}

func (a *orderAggregate) ApplyStatusTx(dbc dbctx.Context, orderID uuid.UUID, status string) (*commerce.Order, bool, error) {
	const op = "Commerce.Order.ApplyStatus"
	to := commerce.NormalizeStatus(status)
	if to == commerce.OrderStatusCancelled {
		return nil, false, domainagg.NewError(domainagg.CodeValidation, op, "cancellation must go through Cancel", nil)
	}
	o, err := a.lockOrder(dbc, op, orderID)
	if err != nil {
		return nil, false, err
	}
	changed, err := a.persistStatus(dbc, op, o, to)
	if err != nil {
		return nil, false, err
	}
	return o, changed, nil
}

// persistStatus applies the transition table to o and writes it with a status+version
// guard. Re-applying the current status writes nothing.
func (a *orderAggregate) persistStatus(dbc dbctx.Context, op string, o *commerce.Order, to string) (bool, error) {
	from := o.Status
	prevVersion := o.Version
	changed, err := o.ApplyStatus(to, a.deps.Base.Now())
	if err != nil {
		return false, domainagg.Wrap(domainagg.CodeInvalidStateTransition, op, err)
	}
	if !changed {
		return false, nil
	}
	updates := map[string]any{
		"status":     o.Status,
		"version":    o.Version,
		"updated_at": o.UpdatedAt,
	}
	if o.CancelledAt != nil {
		updates["cancelled_at"] = *o.CancelledAt
	}
	guard := Guarded{Table: orderTable, ID: o.ID, Statuses: []string{from}}.AtVersion(prevVersion)
	if err := a.deps.Base.CASGuard.Apply(dbc, guard, updates); err != nil {
		return false, err
	}
	if err := emit(a.deps.Base, dbc, orderStatusEvent(o, from)); err != nil {
		return false, err
	}
	return true, nil
}

func (a *orderAggregate) lockOrder(dbc dbctx.Context, op string, id uuid.UUID) (*commerce.Order, error) {
	o, err := a.deps.Orders.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, orderNotFound(op, id)
	}
	return o, nil
}

// placeOrder reserves every line and writes a pending order. Products are locked in
// ascending id order before any reservation; any failure aborts the caller's tx.
func placeOrder(
	dbc dbctx.Context,
	base BaseDeps,
	inv domainagg.InventoryTx,
	orders repos.OrderRepo,
	orderLines repos.OrderLineRepo,
	op string,
	owner uuid.UUID,
	items []domainagg.OrderLineInput,
) (*commerce.Order, error) {
	merged := mergeOrderLines(items)
	ids := make([]uuid.UUID, 0, len(merged))
	for _, it := range merged {
		ids = append(ids, it.ProductID)
	}
	products, err := inv.LockProducts(dbc, ids)
	if err != nil {
		return nil, err
	}

	now := base.Now()
	o := &commerce.Order{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      commerce.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ref := domainagg.StockRef{Type: aggregateTypeOrder, ID: o.ID}

	byProduct := make(map[uuid.UUID]int, len(merged))
	for _, it := range merged {
		byProduct[it.ProductID] = it.Quantity
	}
	for _, id := range repos.SortedUniqueIDs(ids) {
		if products[id] == nil {
			return nil, productNotFound(op, id)
		}
		if _, err := inv.ReserveTx(dbc, domainagg.StockChangeInput{ProductID: id, Quantity: byProduct[id], Ref: ref}); err != nil {
			return nil, err
		}
	}

	lines := make([]*commerce.OrderLine, 0, len(merged))
	for _, it := range merged {
		p := products[it.ProductID]
		lines = append(lines, &commerce.OrderLine{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  it.Quantity,
			UnitPrice: p.UnitPrice,
			Subtotal:  commerce.LineSubtotal(p.UnitPrice, it.Quantity),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	o.Total = commerce.SumSubtotals(lines)

	if err := orders.Create(dbc, o); err != nil {
		return nil, err
	}
	if _, err := orderLines.Create(dbc, lines); err != nil {
		return nil, err
	}

	payloadLines := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		o.Lines = append(o.Lines, *l)
		payloadLines = append(payloadLines, map[string]any{
			"product_id": l.ProductID.String(),
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.StringFixed(2),
		})
	}
	if err := emit(base, dbc, pendingEvent{
		Type:          commerce.EventOrderCreated,
		AggregateType: aggregateTypeOrder,
		AggregateID:   o.ID,
		Payload: map[string]any{
			"owner_user_id": owner.String(),
			"total":         o.Total.StringFixed(2),
			"lines":         payloadLines,
		},
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// mergeOrderLines folds duplicate products into one line, keeping first-seen order.
func mergeOrderLines(items []domainagg.OrderLineInput) []domainagg.OrderLineInput {
	idx := make(map[uuid.UUID]int, len(items))
	out := make([]domainagg.OrderLineInput, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

func validateLineEdits(op string, edits []domainagg.LineEdit) error {
	if len(edits) == 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "no line edits", nil)
	}
	for i, e := range edits {
		switch e.Op {
		case domainagg.LineEditAdd:
			if e.ProductID == uuid.Nil {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: add requires product_id", i), nil)
			}
			if e.Quantity <= 0 {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: invalid quantity %d", i, e.Quantity), nil)
			}
		case domainagg.LineEditUpdate:
			if e.LineID == uuid.Nil {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: update requires line_id", i), nil)
			}
			if e.Quantity <= 0 {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: invalid quantity %d", i, e.Quantity), nil)
			}
		case domainagg.LineEditRemove:
			if e.LineID == uuid.Nil {
				return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: remove requires line_id", i), nil)
			}
		default:
			return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("edit %d: unknown op %q", i, e.Op), nil)
		}
	}
	return nil
}

func lineUpdates(l *commerce.OrderLine, now time.Time) map[string]any {
	return map[string]any{
		"quantity":   l.Quantity,
		"unit_price": l.UnitPrice,
		"subtotal":   l.Subtotal,
		"updated_at": now,
	}
}

func lineProductIDs(lines []*commerce.OrderLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}

func sortLinesByProduct(lines []*commerce.OrderLine) []*commerce.OrderLine {
	out := append([]*commerce.OrderLine(nil), lines...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0 })
	return out
}

func orderResource(o *commerce.Order) authz.Resource {
	return authz.Resource{Kind: "order", ID: o.ID, OwnerUserID: o.OwnerUserID}
}

func orderNotFound(op string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order not found: %s", id), nil)
}
