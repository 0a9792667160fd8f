package commerce

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "paid"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  nil,
	OrderStatusCancelled:  nil,
}

type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID       `gorm:"type:uuid;not null;index;column:owner_user_id" json:"owner_user_id"`
	Status      string          `gorm:"not null;index;column:status" json:"status"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null;column:total" json:"total"`
	Version     int             `gorm:"not null;default:0;column:version" json:"version"`
	CancelledAt *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	Lines []OrderLine `gorm:"foreignKey:OrderID" json:"lines,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "customer_order" }

// OrderLine subtotal is fixed at UnitPrice * Quantity using the price at the time the
// line was last written.
type OrderLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_line_product,priority:1;column:order_id" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_line_product,priority:2;column:product_id" json:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity > 0;column:quantity" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;column:unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null;column:subtotal" json:"subtotal"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (OrderLine) TableName() string { return "order_line" }

func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// SumSubtotals adds stored line subtotals without repricing.
func SumSubtotals(lines []*OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if l == nil {
			continue
		}
		total = total.Add(l.Subtotal)
	}
	return total
}

// TransitionError reports a status change the order state machine does not allow.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order status transition %s -> %s not allowed", e.From, e.To)
}

func IsOrderStatus(s string) bool {
	_, ok := orderTransitions[NormalizeStatus(s)]
	return ok
}

func IsTerminalOrderStatus(s string) bool {
	s = NormalizeStatus(s)
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition reports whether from -> to is allowed. Same-status is not a transition.
func CanTransition(from, to string) bool {
	from, to = NormalizeStatus(from), NormalizeStatus(to)
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyStatus moves the order to status `to`. Re-applying the current status is a
// no-op and reports changed=false.
func (o *Order) ApplyStatus(to string, at time.Time) (changed bool, err error) {
	from := NormalizeStatus(o.Status)
	to = NormalizeStatus(to)
	if !IsOrderStatus(to) {
		return false, &TransitionError{From: from, To: to}
	}
	if from == to {
		return false, nil
	}
	if !CanTransition(from, to) {
		return false, &TransitionError{From: from, To: to}
	}
	o.Status = to
	o.Version++
	o.UpdatedAt = at
	if to == OrderStatusCancelled {
		o.CancelledAt = &at
	}
	return true, nil
}

// LinesEditable reports whether order lines may still be added, changed or removed.
func LinesEditable(status string) bool {
	return !IsTerminalOrderStatus(status)
}

func NormalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
