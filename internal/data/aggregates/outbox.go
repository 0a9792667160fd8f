package aggregates

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

const (
	aggregateTypeOrder    = "order"
	aggregateTypePayment  = "payment"
	aggregateTypeShipment = "shipment"

	TopicOrders    = "techwave.orders"
	TopicPayments  = "techwave.payments"
	TopicShipments = "techwave.shipments"
)

func topicFor(aggregateType string) string {
	switch aggregateType {
	case aggregateTypePayment:
		return TopicPayments
	case aggregateTypeShipment:
		return TopicShipments
	default:
		return TopicOrders
	}
}

// pendingEvent is buffered during a write and flushed to the outbox in the same tx.
type pendingEvent struct {
	Type          string
	AggregateType string
	AggregateID   uuid.UUID
	// Key partitions the event stream; all events of one order share it.
	Key     uuid.UUID
	Payload map[string]any
}

func emit(deps BaseDeps, dbc dbctx.Context, events ...pendingEvent) error {
	if deps.Outbox == nil || len(events) == 0 {
		return nil
	}
	rows := make([]*commerce.OutboxEvent, 0, len(events))
	for _, ev := range events {
		payload := ev.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		payload["event_type"] = ev.Type
		payload["aggregate_id"] = ev.AggregateID.String()
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		key := ev.Key
		if key == uuid.Nil {
			key = ev.AggregateID
		}
		rows = append(rows, &commerce.OutboxEvent{
			EventType:     ev.Type,
			AggregateType: ev.AggregateType,
			AggregateID:   ev.AggregateID,
			Topic:         topicFor(ev.AggregateType),
			Key:           key.String(),
			Payload:       datatypes.JSON(raw),
			CreatedAt:     deps.Now(),
		})
	}
	return deps.Outbox.Create(dbc, rows)
}

func orderStatusEvent(o *commerce.Order, from string) pendingEvent {
	return pendingEvent{
		Type:          commerce.EventOrderStatusChanged,
		AggregateType: aggregateTypeOrder,
		AggregateID:   o.ID,
		Key:           o.ID,
		Payload: map[string]any{
			"from":    from,
			"to":      o.Status,
			"version": o.Version,
		},
	}
}
