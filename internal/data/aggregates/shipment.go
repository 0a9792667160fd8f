package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
)

const shipmentTable = "shipment"

type ShipmentProcessDeps struct {
	Base BaseDeps

	Shipments   repos.ShipmentRepo
	Orders      repos.OrderRepo
	OrderStatus domainagg.OrderStatusTx

	// AllowPending lets unpaid orders ship. Defaults to SHIPMENT_ALLOW_PENDING.
	AllowPending *bool
}

type shipmentProcess struct {
	deps         ShipmentProcessDeps
	allowPending bool
}

func NewShipmentProcess(deps ShipmentProcessDeps) domainagg.ShipmentProcess {
	deps.Base = deps.Base.withDefaults()
	if deps.Shipments == nil {
		deps.Shipments = repos.NewShipmentRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.Orders == nil {
		deps.Orders = repos.NewOrderRepo(deps.Base.DB, deps.Base.Log)
	}
	if deps.OrderStatus == nil {
		deps.OrderStatus = NewOrderAggregate(OrderAggregateDeps{Base: deps.Base, Orders: deps.Orders})
	}
	allow := envutil.Bool("SHIPMENT_ALLOW_PENDING", false)
	if deps.AllowPending != nil {
		allow = *deps.AllowPending
	}
	return &shipmentProcess{deps: deps, allowPending: allow}
}

func (s *shipmentProcess) Contract() domainagg.Contract {
	return domainagg.ShipmentProcessContract
}

func (s *shipmentProcess) Create(ctx context.Context, in domainagg.CreateShipmentInput) (*commerce.Shipment, error) {
	const op = "Commerce.Shipment.Create"
	address := strings.TrimSpace(in.DestinationAddress)
	carrier := strings.TrimSpace(in.Carrier)
	tracking := strings.TrimSpace(in.TrackingNumber)
	switch {
	case in.OrderID == uuid.Nil:
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing order_id", nil)
	case address == "":
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing destination_address", nil)
	case carrier == "":
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing carrier", nil)
	case in.EstimatedDelivery != nil && in.EstimatedDelivery.Before(s.deps.Base.Now()):
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "estimated_delivery is in the past", nil)
	}

	var out *commerce.Shipment
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		o, err := s.deps.Orders.LockByID(dbc, in.OrderID)
		if err != nil {
			return err
		}
		if o == nil {
			return orderNotFound(op, in.OrderID)
		}
		if err := authorize(s.deps.Base, op, in.Actor, authz.ActionShipmentCreate, orderResource(o)); err != nil {
			return err
		}
		if !s.readyToShip(o.Status) {
			return domainagg.NewError(domainagg.CodeInvalidStateTransition, op, fmt.Sprintf("order in status %s cannot ship", o.Status), nil)
		}
		existing, err := s.deps.Shipments.GetByOrderID(dbc, o.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domainagg.NewError(domainagg.CodeAlreadyExists, op, "order already has a shipment", nil)
		}
		if err := s.requireTrackingFree(dbc, op, tracking, uuid.Nil); err != nil {
			return err
		}

		now := s.deps.Base.Now()
		sh := &commerce.Shipment{
			ID:                 uuid.New(),
			OrderID:            o.ID,
			DestinationAddress: address,
			Carrier:            carrier,
			EstimatedDelivery:  in.EstimatedDelivery,
			Status:             commerce.ShipmentStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if tracking != "" {
			sh.TrackingNumber = &tracking
		}
		if err := s.deps.Shipments.Create(dbc, sh); err != nil {
			return err
		}

		switch commerce.NormalizeStatus(o.Status) {
		case commerce.OrderStatusPending, commerce.OrderStatusPaid:
			if _, _, err := s.deps.OrderStatus.ApplyStatusTx(dbc, o.ID, commerce.OrderStatusProcessing); err != nil {
				return err
			}
		}
		if err := emit(s.deps.Base, dbc, shipmentEvent(commerce.EventShipmentCreated, sh, "")); err != nil {
			return err
		}
		out = sh
		return nil
	})
	return out, err
}

// UpdateStatus moves the shipment and cascades in_transit and delivered to the order.
// Re-applying the current status changes nothing.
func (s *shipmentProcess) UpdateStatus(ctx context.Context, in domainagg.UpdateShipmentStatusInput) (domainagg.ShipmentResult, error) {
	const op = "Commerce.Shipment.UpdateStatus"
	to := commerce.NormalizeStatus(in.Status)
	if !commerce.IsShipmentStatus(to) {
		return domainagg.ShipmentResult{}, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown shipment status %q", in.Status), nil)
	}

	var out domainagg.ShipmentResult
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		sh, o, err := s.lockShipment(dbc, op, in.ShipmentID, in.Actor, authz.ActionShipmentUpdateStatus)
		if err != nil {
			return err
		}
		from := sh.Status
		if from == to {
			out = domainagg.ShipmentResult{Shipment: sh, OrderStatus: o.Status}
			return nil
		}
		if from == commerce.ShipmentStatusDelivered {
			return domainagg.NewError(domainagg.CodeInvalidStateTransition, op, "shipment already delivered", nil)
		}

		now := s.deps.Base.Now()
		updates := map[string]any{"status": to, "updated_at": now}
		if to == commerce.ShipmentStatusInTransit && sh.ShippedAt == nil {
			updates["shipped_at"] = now
			sh.ShippedAt = &now
		}
		if to == commerce.ShipmentStatusDelivered {
			updates["delivered_at"] = now
			sh.DeliveredAt = &now
			if sh.ShippedAt == nil {
				updates["shipped_at"] = now
				sh.ShippedAt = &now
			}
		}
		guard := Guarded{Table: shipmentTable, ID: sh.ID, Statuses: []string{from}}
		if err := s.deps.Base.CASGuard.Apply(dbc, guard, updates); err != nil {
			return err
		}
		sh.Status = to
		sh.UpdatedAt = now

		orderStatus := o.Status
		if target, ok := commerce.OrderStatusForShipment(to); ok {
			updated, _, err := s.deps.OrderStatus.ApplyStatusTx(dbc, o.ID, target)
			if err != nil {
				return err
			}
			orderStatus = updated.Status
		}
		if err := emit(s.deps.Base, dbc, shipmentEvent(commerce.EventShipmentStatusChanged, sh, from)); err != nil {
			return err
		}
		out = domainagg.ShipmentResult{Shipment: sh, OrderStatus: orderStatus, Changed: true}
		return nil
	})
	return out, err
}

func (s *shipmentProcess) AssignTracking(ctx context.Context, in domainagg.AssignTrackingInput) (*commerce.Shipment, error) {
	const op = "Commerce.Shipment.AssignTracking"
	tracking := strings.TrimSpace(in.TrackingNumber)
	if tracking == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing tracking_number", nil)
	}
	var out *commerce.Shipment
	err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
		sh, _, err := s.lockShipment(dbc, op, in.ShipmentID, in.Actor, authz.ActionShipmentAssignTrack)
		if err != nil {
			return err
		}
		if sh.TrackingNumber != nil && *sh.TrackingNumber == tracking {
			out = sh
			return nil
		}
		if err := s.requireTrackingFree(dbc, op, tracking, sh.ID); err != nil {
			return err
		}
		now := s.deps.Base.Now()
		if err := s.deps.Shipments.UpdateFields(dbc, sh.ID, map[string]interface{}{
			"tracking_number": tracking,
			"updated_at":      now,
		}); err != nil {
			return err
		}
		sh.TrackingNumber = &tracking
		sh.UpdatedAt = now
		out = sh
		return nil
	})
	return out, err
}

func (s *shipmentProcess) Track(ctx context.Context, actor domainagg.Actor, trackingNumber string) (domainagg.ShipmentResult, error) {
	const op = "Commerce.Shipment.Track"
	tracking := strings.TrimSpace(trackingNumber)
	if tracking == "" {
		return domainagg.ShipmentResult{}, domainagg.NewError(domainagg.CodeValidation, op, "missing tracking_number", nil)
	}
	dbc := readTx(ctx, s.deps.Base)
	sh, err := s.deps.Shipments.GetByTrackingNumber(dbc, tracking)
	if err != nil {
		return domainagg.ShipmentResult{}, MapError(op, err)
	}
	if sh == nil {
		return domainagg.ShipmentResult{}, domainagg.NewError(domainagg.CodeNotFound, op, "no shipment with that tracking number", nil)
	}
	o, err := s.deps.Orders.GetByID(dbc, sh.OrderID)
	if err != nil {
		return domainagg.ShipmentResult{}, MapError(op, err)
	}
	if o == nil {
		return domainagg.ShipmentResult{}, orderNotFound(op, sh.OrderID)
	}
	if err := authorize(s.deps.Base, op, actor, authz.ActionShipmentRead, shipmentResource(sh, o)); err != nil {
		return domainagg.ShipmentResult{}, err
	}
	return domainagg.ShipmentResult{Shipment: sh, OrderStatus: o.Status}, nil
}

func (s *shipmentProcess) GetByOrder(ctx context.Context, actor domainagg.Actor, orderID uuid.UUID) (*commerce.Shipment, error) {
	const op = "Commerce.Shipment.GetByOrder"
	dbc := readTx(ctx, s.deps.Base)
	o, err := s.deps.Orders.GetByID(dbc, orderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if o == nil {
		return nil, orderNotFound(op, orderID)
	}
	if err := authorize(s.deps.Base, op, actor, authz.ActionShipmentRead, authz.Resource{Kind: "shipment", OwnerUserID: o.OwnerUserID}); err != nil {
		return nil, err
	}
	sh, err := s.deps.Shipments.GetByOrderID(dbc, orderID)
	if err != nil {
		return nil, MapError(op, err)
	}
	if sh == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("order %s has no shipment", orderID), nil)
	}
	return sh, nil
}

func (s *shipmentProcess) readyToShip(status string) bool {
	switch commerce.NormalizeStatus(status) {
	case commerce.OrderStatusPaid, commerce.OrderStatusProcessing:
		return true
	case commerce.OrderStatusPending:
		return s.allowPending
	default:
		return false
	}
}

func (s *shipmentProcess) lockShipment(dbc dbctx.Context, op string, id uuid.UUID, actor domainagg.Actor, action authz.Action) (*commerce.Shipment, *commerce.Order, error) {
	if id == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, op, "missing shipment_id", nil)
	}
	sh, err := s.deps.Shipments.LockByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if sh == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("shipment not found: %s", id), nil)
	}
	o, err := s.deps.Orders.GetByID(dbc, sh.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, orderNotFound(op, sh.OrderID)
	}
	if err := authorize(s.deps.Base, op, actor, action, shipmentResource(sh, o)); err != nil {
		return nil, nil, err
	}
	return sh, o, nil
}

func (s *shipmentProcess) requireTrackingFree(dbc dbctx.Context, op, tracking string, self uuid.UUID) error {
	if tracking == "" {
		return nil
	}
	other, err := s.deps.Shipments.GetByTrackingNumber(dbc, tracking)
	if err != nil {
		return err
	}
	if other != nil && other.ID != self {
		return domainagg.NewError(domainagg.CodeAlreadyExists, op, "tracking number already assigned", nil)
	}
	return nil
}

func shipmentEvent(eventType string, sh *commerce.Shipment, from string) pendingEvent {
	payload := map[string]any{
		"order_id": sh.OrderID.String(),
		"carrier":  sh.Carrier,
		"status":   sh.Status,
	}
	if from != "" {
		payload["from"] = from
	}
	if sh.TrackingNumber != nil {
		payload["tracking_number"] = *sh.TrackingNumber
	}
	return pendingEvent{
		Type:          eventType,
		AggregateType: aggregateTypeShipment,
		AggregateID:   sh.ID,
		Key:           sh.OrderID,
		Payload:       payload,
	}
}

func shipmentResource(sh *commerce.Shipment, o *commerce.Order) authz.Resource {
	return authz.Resource{Kind: "shipment", ID: sh.ID, OwnerUserID: o.OwnerUserID}
}
