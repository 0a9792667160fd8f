package aggregates

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

func TestShipmentCreateRequiresReadyOrder(t *testing.T) {
	s := newTestStack(t)
	staff := operator()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "2.00", 10)
	pending := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})
	paid := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusPaid, []*commerce.Product{p}, []int{1})

	in := func(orderID uuid.UUID) domainagg.CreateShipmentInput {
		return domainagg.CreateShipmentInput{Actor: staff, OrderID: orderID, DestinationAddress: "1 Main St", Carrier: "UPS"}
	}

	if _, err := s.shipments.Create(s.ctx, in(pending.ID)); !domainagg.IsCode(err, domainagg.CodeInvalidStateTransition) {
		t.Fatalf("pending order shipment: got %v", err)
	}
	if _, err := s.shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: client(), OrderID: paid.ID, DestinationAddress: "x", Carrier: "y"}); !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("client shipment: got %v", err)
	}
	past := time.Now().Add(-time.Hour)
	bad := in(paid.ID)
	bad.EstimatedDelivery = &past
	if _, err := s.shipments.Create(s.ctx, bad); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("past estimated delivery: got %v", err)
	}

	sh, err := s.shipments.Create(s.ctx, in(paid.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sh.Status != commerce.ShipmentStatusPending || sh.TrackingNumber != nil {
		t.Fatalf("shipment: %+v", sh)
	}
	if got := testutil.ReloadOrder(t, s.ctx, s.tx, paid.ID).Status; got != commerce.OrderStatusProcessing {
		t.Fatalf("paid order should move to processing, got %s", got)
	}
	if _, err := s.shipments.Create(s.ctx, in(paid.ID)); !domainagg.IsCode(err, domainagg.CodeAlreadyExists) {
		t.Fatalf("second shipment: got %v", err)
	}
}

func TestShipmentCreateAllowsPendingWhenConfigured(t *testing.T) {
	s := newTestStack(t)
	allow := true
	shipments := NewShipmentProcess(ShipmentProcessDeps{Base: s.base, OrderStatus: s.orders, AllowPending: &allow})
	p := testutil.SeedProduct(t, s.ctx, s.tx, "2.00", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusPending, []*commerce.Product{p}, []int{1})

	if _, err := shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: operator(), OrderID: o.ID, DestinationAddress: "a", Carrier: "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := testutil.ReloadOrder(t, s.ctx, s.tx, o.ID).Status; got != commerce.OrderStatusProcessing {
		t.Fatalf("order status: %s", got)
	}
}

func TestShipmentStatusCascadeIsIdempotent(t *testing.T) {
	s := newTestStack(t)
	staff := operator()
	owner := client()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "2.00", 10)
	o := testutil.SeedOrder(t, s.ctx, s.tx, owner.UserID, commerce.OrderStatusPaid, []*commerce.Product{p}, []int{1})

	sh, err := s.shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: staff, OrderID: o.ID, DestinationAddress: "1 Main St", Carrier: "DHL", TrackingNumber: "TRK-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := s.shipments.UpdateStatus(s.ctx, domainagg.UpdateShipmentStatusInput{Actor: staff, ShipmentID: sh.ID, Status: "in_transit"})
	if err != nil {
		t.Fatalf("in_transit: %v", err)
	}
	if !res.Changed || res.OrderStatus != commerce.OrderStatusShipped || res.Shipment.ShippedAt == nil {
		t.Fatalf("in_transit result: %+v", res)
	}
	version := testutil.ReloadOrder(t, s.ctx, s.tx, o.ID).Version

	again, err := s.shipments.UpdateStatus(s.ctx, domainagg.UpdateShipmentStatusInput{Actor: staff, ShipmentID: sh.ID, Status: "in_transit"})
	if err != nil {
		t.Fatalf("repeat in_transit: %v", err)
	}
	if again.Changed || again.OrderStatus != commerce.OrderStatusShipped {
		t.Fatalf("repeat should be a no-op: %+v", again)
	}
	if got := testutil.ReloadOrder(t, s.ctx, s.tx, o.ID).Version; got != version {
		t.Fatalf("repeat bumped the order version: %d -> %d", version, got)
	}

	res, err = s.shipments.UpdateStatus(s.ctx, domainagg.UpdateShipmentStatusInput{Actor: staff, ShipmentID: sh.ID, Status: "delivered"})
	if err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if res.OrderStatus != commerce.OrderStatusDelivered || res.Shipment.DeliveredAt == nil {
		t.Fatalf("delivered result: %+v", res)
	}
	if _, err := s.shipments.UpdateStatus(s.ctx, domainagg.UpdateShipmentStatusInput{Actor: staff, ShipmentID: sh.ID, Status: "preparing"}); !domainagg.IsCode(err, domainagg.CodeInvalidStateTransition) {
		t.Fatalf("leaving delivered: got %v", err)
	}

	tracked, err := s.shipments.Track(s.ctx, owner, "TRK-1")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if tracked.Shipment.ID != sh.ID || tracked.OrderStatus != commerce.OrderStatusDelivered {
		t.Fatalf("track result: %+v", tracked)
	}
	if _, err := s.shipments.Track(s.ctx, client(), "TRK-1"); !domainagg.IsCode(err, domainagg.CodeUnauthorized) {
		t.Fatalf("foreign track: got %v", err)
	}
	if evs := s.eventTypes(t, sh.ID); !containsString(evs, commerce.EventShipmentStatusChanged) {
		t.Fatalf("missing shipment.status_changed: %v", evs)
	}
}

func TestShipmentTrackingNumbersAreUnique(t *testing.T) {
	s := newTestStack(t)
	staff := operator()
	p := testutil.SeedProduct(t, s.ctx, s.tx, "2.00", 10)
	o1 := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusProcessing, []*commerce.Product{p}, []int{1})
	o2 := testutil.SeedOrder(t, s.ctx, s.tx, uuid.New(), commerce.OrderStatusProcessing, []*commerce.Product{p}, []int{1})

	first, err := s.shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: staff, OrderID: o1.ID, DestinationAddress: "a", Carrier: "c", TrackingNumber: "DUP"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := s.shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: staff, OrderID: o2.ID, DestinationAddress: "a", Carrier: "c", TrackingNumber: "DUP"}); !domainagg.IsCode(err, domainagg.CodeAlreadyExists) {
		t.Fatalf("duplicate tracking on create: got %v", err)
	}
	second, err := s.shipments.Create(s.ctx, domainagg.CreateShipmentInput{Actor: staff, OrderID: o2.ID, DestinationAddress: "a", Carrier: "c"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if _, err := s.shipments.AssignTracking(s.ctx, domainagg.AssignTrackingInput{Actor: staff, ShipmentID: second.ID, TrackingNumber: "DUP"}); !domainagg.IsCode(err, domainagg.CodeAlreadyExists) {
		t.Fatalf("duplicate tracking on assign: got %v", err)
	}
	assigned, err := s.shipments.AssignTracking(s.ctx, domainagg.AssignTrackingInput{Actor: staff, ShipmentID: second.ID, TrackingNumber: "NEW-2"})
	if err != nil || assigned.TrackingNumber == nil || *assigned.TrackingNumber != "NEW-2" {
		t.Fatalf("assign: %+v err=%v", assigned, err)
	}
	if _, err := s.shipments.AssignTracking(s.ctx, domainagg.AssignTrackingInput{Actor: staff, ShipmentID: first.ID, TrackingNumber: "DUP"}); err != nil {
		t.Fatalf("reassigning the same number is a no-op: %v", err)
	}
	got, err := s.shipments.GetByOrder(s.ctx, staff, o2.ID)
	if err != nil || got.ID != second.ID {
		t.Fatalf("get by order: %+v err=%v", got, err)
	}
}
