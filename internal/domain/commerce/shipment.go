package commerce

import (
	"time"

	"github.com/google/uuid"
)

const (
	ShipmentStatusPending   = "pending"
	ShipmentStatusPreparing = "preparing"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
)

type Shipment struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex;column:order_id" json:"order_id"`
	DestinationAddress string     `gorm:"not null;column:destination_address" json:"destination_address"`
	Carrier            string     `gorm:"not null;column:carrier" json:"carrier"`
	TrackingNumber     *string    `gorm:"uniqueIndex;column:tracking_number" json:"tracking_number,omitempty"`
	EstimatedDelivery  *time.Time `gorm:"column:estimated_delivery" json:"estimated_delivery,omitempty"`
	Status             string     `gorm:"not null;index;column:status" json:"status"`
	ShippedAt          *time.Time `gorm:"column:shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `gorm:"column:delivered_at" json:"delivered_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Shipment) TableName() string { return "shipment" }

func IsShipmentStatus(s string) bool {
	switch NormalizeStatus(s) {
	case ShipmentStatusPending, ShipmentStatusPreparing, ShipmentStatusInTransit, ShipmentStatusDelivered:
		return true
	default:
		return false
	}
}

// OrderStatusForShipment returns the order status a shipment status cascades to, if any.
func OrderStatusForShipment(s string) (string, bool) {
	switch NormalizeStatus(s) {
	case ShipmentStatusInTransit:
		return OrderStatusShipped, true
	case ShipmentStatusDelivered:
		return OrderStatusDelivered, true
	default:
		return "", false
	}
}
