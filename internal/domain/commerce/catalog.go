package commerce

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null;uniqueIndex;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

// Product is a catalog entry. Stock is owned by the inventory ledger; catalog edits
// never write it directly.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index;column:category_id" json:"category_id,omitempty"`
	Name        string          `gorm:"not null;index;column:name" json:"name"`
	Description string          `gorm:"column:description" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null;column:unit_price" json:"unit_price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0;column:stock" json:"stock"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "product" }

const (
	StockReasonReserve = "reserve"
	StockReasonRelease = "release"
	StockReasonAdjust  = "adjust"
	StockReasonRestock = "restock"
)

// StockMovement is the append-only audit trail for every stock counter change.
type StockMovement struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;index;column:product_id" json:"product_id"`
	Delta      int        `gorm:"not null;column:delta" json:"delta"`
	Reason     string     `gorm:"not null;column:reason" json:"reason"`
	RefType    string     `gorm:"column:ref_type" json:"ref_type,omitempty"`
	RefID      *uuid.UUID `gorm:"type:uuid;index;column:ref_id" json:"ref_id,omitempty"`
	StockAfter int        `gorm:"not null;column:stock_after" json:"stock_after"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movement" }
