package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

var ShipmentProcessContract = Contract{
	Name:             "Commerce.ShipmentProcess",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyOwnerScoped,
	Actions: []authz.Action{
		authz.ActionShipmentCreate,
		authz.ActionShipmentRead,
		authz.ActionShipmentUpdateStatus,
		authz.ActionShipmentAssignTrack,
	},
	Emits: []string{
		commerce.EventShipmentCreated,
		commerce.EventShipmentStatusChanged,
	},
	Notes: "Binds exactly one shipment to an order and cascades shipment progress to the order status.",
}

// ShipmentProcess owns the single shipment of an order and the shipment -> order cascade.
type ShipmentProcess interface {
	Aggregate

	Create(ctx context.Context, in CreateShipmentInput) (*commerce.Shipment, error)
	UpdateStatus(ctx context.Context, in UpdateShipmentStatusInput) (ShipmentResult, error)
	AssignTracking(ctx context.Context, in AssignTrackingInput) (*commerce.Shipment, error)

	Track(ctx context.Context, actor Actor, trackingNumber string) (ShipmentResult, error)
	GetByOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*commerce.Shipment, error)
}

type CreateShipmentInput struct {
	Actor              Actor
	OrderID            uuid.UUID
	DestinationAddress string
	Carrier            string
	TrackingNumber     string
	EstimatedDelivery  *time.Time
}

type UpdateShipmentStatusInput struct {
	Actor      Actor
	ShipmentID uuid.UUID
	Status     string
}

type AssignTrackingInput struct {
	Actor          Actor
	ShipmentID     uuid.UUID
	TrackingNumber string
}

type ShipmentResult struct {
	Shipment    *commerce.Shipment `json:"shipment"`
	OrderStatus string             `json:"order_status"`
	Changed     bool               `json:"changed"`
}
