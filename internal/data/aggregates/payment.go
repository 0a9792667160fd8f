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

const paymentTable = "payment"

type PaymentProcessDeps struct {
	Base BaseDeps

	Payments    repos.PaymentRepo
	Orders      repos.OrderRepo
	OrderLines  repos.OrderLineRepo
	OrderStatus domainagg.OrderStatusTx
}

type paymentProcess struct {
	deps PaymentProcessDeps
}

func NewPaymentProcess(deps PaymentProcessDeps) domainagg.PaymentProcess {
	deps.Base = deps.Base.withDefaults()
	if deps.Payments == nil {
		deps.Payments = repos.NewPaymentRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Orders == nil {
		deps.Orders = repos.NewOrderRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.OrderLines == nil {
		deps.OrderLines = repos.NewOrderLineRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.OrderStatus == nil {
		deps.OrderStatus = NewOrderAggregate(OrderAggregateDeps{Base: deps.Base, Orders: deps.Orders, OrderLines: deps.OrderLines})
	}
	return &paymentProcess{deps: deps}
}

func (p *paymentProcess) Contract() domainagg.Contract {
	return domainagg.PaymentProcessContract
}

// Create opens a pending payment for the order's current total. The caller's
// requested amount is never trusted.
func (p *paymentProcess) Create(ctx context.Context, in domainagg.CreatePaymentInput) (*commerce.Payment, error) {
	const op = "Commerce.Payment.Create"
	if in.OrderID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	}
	method := commerce.NormalizeStatus(in.Method)
	if !commerce.IsPaymentMethod(method) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unsupported payment method %q", in.Method), nil)
	}

	var out *commerce.Payment
	err := executeWrite(ctx, p.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := p.deps.Orders.LockByID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return orderNotFound(op, in.OrderID)
		}
		if err := authorize(p.deps.Base, op, in.Actor, authz.ActionPaymentCreate, orderResource(o)); err != nil {
			return err
		}
		switch commerce.NormalizeStatus(o.Status) {
		case commerce.OrderStatusPending, commerce.OrderStatusProcessing:
		default:
			return domainagg.NewError(domainagg.CodeInvalidStateTransition, op, fmt.Sprintf("order in status %s does not accept payments", o.Status), nil)
		}

		lines, err := p.deps.OrderLines.ListByOrder(dbc, o.ID)
		if err != nil {
			return err
		}
		if sum := commerce.SumSubtotals(lines); !sum.Equal(o.Total) || !o.Total.IsPositive() {
			return domainagg.NewError(domainagg.CodeInvariantViolation, op, fmt.Sprintf("order total %s does not match line subtotals %s", o.Total.StringFixed(2), sum.StringFixed(2)), nil)
		}

		open, err := p.deps.Payments.CountByOrderAndStatus(dbc, o.ID, []string{commerce.PaymentStatusPending, commerce.PaymentStatusCompleted})
		if err != nil {
			return err
		}
		if open > 0 {
			return domainagg.NewError(domainagg.CodeAlreadyExists, op, "order already has a pending or completed payment", nil)
		}
		if in.RequestedAmount != nil && !in.RequestedAmount.Equal(o.Total) {
			p.deps.Base.Log.Warn("Requested payment amount ignored",
				"order_id", o.ID,
				"requested", in.RequestedAmount.StringFixed(2),
				"total", o.Total.StringFixed(2),
			)
		}

		now := p.deps.Base.Now()
		pay := &commerce.Payment{
			ID:         uuid.New(),
			OrderID:    o.ID,
			Method:     method,
			AmountPaid: o.Total,
			Status:     commerce.PaymentStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := p.deps.Payments.Create(dbc, pay); err != nil {
			return err
		}
		if err := emit(p.deps.Base, dbc, paymentEvent(commerce.EventPaymentCreated, pay)); err != nil {
			return err
		}
		out = pay
		return nil
	})
	return out, err
}

// Complete settles a pending payment and moves the order to paid in the same tx. If
// the order cannot become paid the payment stays pending.
func (p *paymentProcess) Complete(ctx context.Context, in domainagg.PaymentRefInput) (domainagg.PaymentResult, error) {
	const op = "Commerce.Payment.Complete"
	var out domainagg.PaymentResult
	err := executeWrite(ctx, p.deps.Base, op, func(dbc dbctx.Context) error {
		pay, o, err := p.lockPending(dbc, op, in, authz.ActionPaymentComplete)
		if err != nil {
			return err
		}
		now := p.deps.Base.Now()
		if err := p.deps.Base.CASGuard.Apply(dbc, pendingPayment(pay.ID), map[string]any{
			"status":       commerce.PaymentStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		pay.Status = commerce.PaymentStatusCompleted
		pay.CompletedAt = &now
		pay.UpdatedAt = now

		o, _, err = p.deps.OrderStatus.ApplyStatusTx(dbc, o.ID, commerce.OrderStatusPaid)
		if err != nil {
			return err
		}
		if err := emit(p.deps.Base, dbc, paymentEvent(commerce.EventPaymentCompleted, pay)); err != nil {
			return err
		}
		out = domainagg.PaymentResult{Payment: pay, OrderStatus: o.Status}
		return nil
	})
	return out, err
}

func (p *paymentProcess) Cancel(ctx context.Context, in domainagg.PaymentRefInput) (domainagg.PaymentResult, error) {
	const op = "Commerce.Payment.Cancel"
	var out domainagg.PaymentResult
	err := executeWrite(ctx, p.deps.Base, op, func(dbc dbctx.Context) error {
		pay, o, err := p.lockPending(dbc, op, in, authz.ActionPaymentCancel)
		if err != nil {
			return err
		}
		now := p.deps.Base.Now()
		if err := p.deps.Base.CASGuard.Apply(dbc, pendingPayment(pay.ID), map[string]any{
			"status":       commerce.PaymentStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}
		pay.Status = commerce.PaymentStatusCancelled
		pay.CancelledAt = &now
		pay.UpdatedAt = now
		if err := emit(p.deps.Base, dbc, paymentEvent(commerce.EventPaymentCancelled, pay)); err != nil {
			return err
		}
		out = domainagg.PaymentResult{Payment: pay, OrderStatus: o.Status}
		return nil
	})
	return out, err
}

func (p *paymentProcess) Get(ctx context.Context, actor domainagg.Actor, paymentID uuid.UUID) (*commerce.Payment, error) {
	const op = "Commerce.Payment.Get"
	dbc := readTx(ctx, p.deps.Base)
	pay, err := p.deps.Payments.GetByID(dbc, paymentID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if pay == nil {
		return nil, paymentNotFound(op, paymentID)
	}
	o, err := p.deps.Orders.GetByID(dbc, pay.OrderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if o == nil {
		return nil, orderNotFound(op, pay.OrderID)
	}
	if err := authorize(p.deps.Base, op, actor, authz.ActionPaymentRead, paymentResource(pay, o)); err != nil {
		return nil, err
	}
	return pay, nil
}

func (p *paymentProcess) ListByOrder(ctx context.Context, actor domainagg.Actor, orderID uuid.UUID) ([]*commerce.Payment, error) {
	const op = "Commerce.Payment.ListByOrder"
	dbc := readTx(ctx, p.deps.Base)
	o, err := p.deps.Orders.GetByID(dbc, orderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if o == nil {
		return nil, orderNotFound(op, orderID)
	}
	if err := authorize(p.deps.Base, op, actor, authz.ActionPaymentRead, authz.Resource{Kind: "payment", OwnerUserID: o.OwnerUserID}); err != nil {
		return nil, err
	}
	rows, err := p.deps.Payments.ListByOrder(dbc, orderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	return rows, nil
}

// lockPending locks the payment, authorizes against its order and requires status pending.
func (p *paymentProcess) lockPending(dbc dbctx.Context, op string, in domainagg.PaymentRefInput, action authz.Action) (*commerce.Payment, *commerce.Order, error) {
	if in.PaymentID == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, op, "missing payment_id", nil)
	}
	pay, err := p.deps.Payments.LockByID(dbc, in.PaymentID)
	if err != nil {
		return nil, nil, err
	}
	if pay == nil {
		return nil, nil, paymentNotFound(op, in.PaymentID)
	}
	o, err := p.deps.Orders.GetByID(dbc, pay.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, orderNotFound(op, pay.OrderID)
	}
	if err := authorize(p.deps.Base, op, in.Actor, action, paymentResource(pay, o)); err != nil {
		return nil, nil, err
	}
	if pay.Status != commerce.PaymentStatusPending {
		return nil, nil, domainagg.NewError(domainagg.CodeInvalidStateTransition, op, fmt.Sprintf("payment is %s", pay.Status), nil)
	}
	return pay, o, nil
}

func paymentEvent(eventType string, pay *commerce.Payment) pendingEvent {
	return pendingEvent{
		Type:          eventType,
		AggregateType: aggregateTypePayment,
		AggregateID:   pay.ID,
		Key:           pay.OrderID,
		Payload: map[string]any{
			"order_id": pay.OrderID.String(),
			"method":   pay.Method,
			"amount":   pay.AmountPaid.StringFixed(2),
			"status":   pay.Status,
		},
	}
}

func paymentResource(pay *commerce.Payment, o *commerce.Order) authz.Resource {
	return authz.Resource{Kind: "payment", ID: pay.ID, OwnerUserID: o.OwnerUserID}
}

func paymentNotFound(op string, id uuid.UUID) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("payment not found: %s", id), nil)
}

func pendingPayment(id uuid.UUID) Guarded {
	return Guarded{Table: paymentTable, ID: id, Statuses: []string{commerce.PaymentStatusPending}}
}
