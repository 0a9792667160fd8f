package aggregates

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

func TestPaymentAmountIsBoundToOrderTotal(t *testing.T) {
	s := newTestStack(t)
	owner := client()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "19.99", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPending, []*commerce.Product{p}, []int{2})

	bogus := decimal.RequireFromString("0.01")
	pay, err := s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: "Card", RequestedAmount: &bogus})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if !pay.AmountPaid.Equal(decimal.RequireFromString("39.98")) {
		t.Fatalf("amount should be the order total, got %s", pay.AmountPaid)
	}
	if pay.Status != commerce.PaymentStatusPending || pay.Method != commerce.PaymentMethodCard {
		t.Fatalf("payment: %+v", pay)
	}

	_, err = s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: commerce.PaymentMethodPaypal})
	if !domainagg.IsCode(err, domainagg.CodeAlreadyExists) {
		t.Fatalf("second pending payment: got %v", err)
	}
}

func TestPaymentCreateRejections(t *testing.T) {
	s := newTestStack(t)
	owner := client()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "5.00", 10)
	pending := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})
	shipped := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusShipped, []*commerce.Product{p}, []int{1})
	drifted := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})
	if err := s.tx.Model(&commerce.Order{}).Where("id = ?", drifted.ID).Update("total", decimal.RequireFromString("4.00")).Error; err != nil {
		t.Fatalf("drift total: %v", err)
	}

	cases := []struct {
		name string
		in   domainagg.CreatePaymentInput
		code domainagg.ErrorCode
	}{
		{name: "unknown method", in: domainagg.CreatePaymentInput{Actor: owner, OrderID: pending.ID, Method: "barter"}, code: domainagg.CodeValidation},
		{name: "missing order", in: domainagg.CreatePaymentInput{Actor: owner, OrderID: uuid.New(), Method: "card"}, code: domainagg.CodeNotFound},
		{name: "foreign order", in: domainagg.CreatePaymentInput{Actor: client(), OrderID: pending.ID, Method: "card"}, code: domainagg.CodeUnauthorized},
		{name: "shipped order", in: domainagg.CreatePaymentInput{Actor: owner, OrderID: shipped.ID, Method: "card"}, code: domainagg.CodeInvalidStateTransition},
		{name: "total drifted from lines", in: domainagg.CreatePaymentInput{Actor: owner, OrderID: drifted.ID, Method: "card"}, code: domainagg.CodeInvariantViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.payments.Create(s.ctx, tc.in); !domainagg.IsCode(err, tc.code) {
				t.Fatalf("want %s, got %v", tc.code, err)
			}
		})
	}
}

func TestPaymentCompleteCascadesToPaid(t *testing.T) {
	s := newTestStack(t)
	owner := client()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "8.00", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})

	pay, err := s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: "bank_transfer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.payments.Complete(s.ctx, domainagg.PaymentRefInput{Actor: owner, PaymentID: pay.ID}); !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("client completing a payment: got %v", err)
	}

	res, err := s.payments.Complete(s.ctx, domainagg.PaymentRefInput{Actor: operator(), PaymentID: pay.ID})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Payment.Status != commerce.PaymentStatusCompleted || res.Payment.CompletedAt == nil {
		t.Fatalf("payment after complete: %+v", res.Payment)
	}
	if res.OrderStatus != commerce.OrderStatusPaid {
		t.Fatalf("order status: %s", res.OrderStatus)
	}
	if got := testutil.ReloadOrder(t, s.ctx, s.tx, o.ID).Status; got != commerce.OrderStatusPaid {
		t.Fatalf("stored order status: %s", got)
	}

	if _, err := s.payments.Complete(s.ctx, domainagg.PaymentRefInput{Actor: operator(), PaymentID: pay.ID}); !domainagg.IsCode(err, domainagg.CodeInvalidStateTransition) {
		t.Fatalf("completing twice: got %v", err)
	}
	if _, err := s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: "card"}); !domainagg.IsCode(err, domainagg.CodeInvalidStateTransition) {
		t.Fatalf("paying a paid order: got %v", err)
	}
	if evs := s.eventTypes(t, pay.ID); !containsString(evs, commerce.EventPaymentCompleted) {
		t.Fatalf("missing payment.completed: %v", evs)
	}
	if evs := s.eventTypes(t, o.ID); !containsString(evs, commerce.EventOrderStatusChanged) {
		t.Fatalf("missing order.status_changed: %v", evs)
	}
}

func TestPaymentCompleteAbortsWhenOrderCannotBePaid(t *testing.T) {
	s := newTestStack(t)
	p := testutil.SeedProduct(t, s.ctx, s.tx, "8.00", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusCancelled, []*commerce.Product{p}, []int{1})
	pay := testutil.SeedPayment(t, s.ctx, s.tx, o.ID, o.Total, commerce.PaymentStatusPending)

	_, err := s.payments.Complete(s.ctx, domainagg.PaymentRefInput{Actor: operator(), PaymentID: pay.ID})
	if !domainagg.IsCode(err, domainagg.CodeInvalidStateTransition) {
		t.Fatalf("complete against cancelled order: got %v", err)
	}
	got, err := s.payments.Get(s.ctx, operator(), pay.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != commerce.PaymentStatusPending {
		t.Fatalf("payment must stay pending when the cascade fails, got %s", got.Status)
	}
}

func TestPaymentCancelAllowsRetry(t *testing.T) {
	s := newTestStack(t)
	owner := client()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "8.00", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})

	first, err := s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: "card"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := s.payments.Cancel(s.ctx, domainagg.PaymentRefInput{Actor: owner, PaymentID: first.ID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Payment.Status != commerce.PaymentStatusCancelled || res.OrderStatus != commerce.OrderStatusPending {
		t.Fatalf("cancel result: %+v", res)
	}
	if _, err := s.payments.Create(s.ctx, domainagg.CreatePaymentInput{Actor: owner, OrderID: o.ID, Method: "paypal"}); err != nil {
		t.Fatalf("retry after cancel: %v", err)
	}
	rows, err := s.payments.ListByOrder(s.ctx, owner, o.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("list by order: n=%d err=%v", len(rows), err)
	}
	if _, err := s.payments.ListByOrder(s.ctx, client(), o.ID); !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("foreign list: got %v", err)
	}
}
