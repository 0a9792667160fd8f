package orderexpiry

import "time"

const (
	WorkflowName   = "order_expiry"
	ActivityCancel = "order_expiry_cancel"

	ResultCancelled = "cancelled"
	ResultSkipped   = "skipped"
)

// WorkflowID is deterministic so a second schedule for the same order is rejected
// by Temporal instead of starting a duplicate timer.
func WorkflowID(orderID string) string { return "order-expiry-" + orderID }

type Input struct {
	OrderID string        `json:"order_id"`
	TTL     time.Duration `json:"ttl"`
}

type CancelResult struct {
	OrderID string `json:"order_id"`
	Result  string `json:"result"`
	Status  string `json:"status,omitempty"`
}
