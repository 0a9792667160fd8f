package commerce

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCard         = "card"
	PaymentMethodPaypal       = "paypal"
	PaymentMethodBankTransfer = "bank_transfer"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusCancelled = "cancelled"
)

// Payment is one payment attempt against an order. An order may accumulate several
// attempts but at most one is pending at a time.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index;column:order_id" json:"order_id"`
	Method      string          `gorm:"not null;column:method" json:"method"`
	AmountPaid  decimal.Decimal `gorm:"type:numeric(12,2);not null;column:amount_paid" json:"amount_paid"`
	Status      string          `gorm:"not null;index;column:status" json:"status"`
	CompletedAt *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CancelledAt *time.Time      `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func IsPaymentMethod(m string) bool {
	switch NormalizeStatus(m) {
	case PaymentMethodCard, PaymentMethodPaypal, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}
