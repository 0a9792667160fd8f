package commerce

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventOrderCreated          = "order.created"
	EventOrderCancelled        = "order.cancelled"
	EventOrderStatusChanged    = "order.status_changed"
	EventOrderLinesChanged     = "order.lines_changed"
	EventPaymentCreated        = "payment.created"
	EventPaymentCompleted      = "payment.completed"
	EventPaymentCancelled      = "payment.cancelled"
	EventShipmentCreated       = "shipment.created"
	EventShipmentStatusChanged = "shipment.status_changed"
)

// OutboxEvent is written in the same transaction as the state change it describes and
// relayed to the event bus afterwards.
type OutboxEvent struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventType     string         `gorm:"not null;index;column:event_type" json:"event_type"`
	AggregateType string         `gorm:"not null;column:aggregate_type" json:"aggregate_type"`
	AggregateID   uuid.UUID      `gorm:"type:uuid;not null;index;column:aggregate_id" json:"aggregate_id"`
	Topic         string         `gorm:"not null;column:topic" json:"topic"`
	Key           string         `gorm:"not null;column:message_key" json:"key"`
	Payload       datatypes.JSON `gorm:"column:payload" json:"payload"`
	Attempts      int            `gorm:"not null;default:0;column:attempts" json:"attempts"`
	LastError     string         `gorm:"column:last_error" json:"last_error,omitempty"`
	SentAt        *time.Time     `gorm:"index;column:sent_at" json:"sent_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (OutboxEvent) TableName() string { return "outbox_event" }
