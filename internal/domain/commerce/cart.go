package commerce

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the pre-order basket. There is at most one per user.
type Cart struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:owner_user_id" json:"owner_user_id"`

	Lines []CartLine `gorm:"foreignKey:CartID" json:"lines,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Cart) TableName() string { return "cart" }

type CartLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_product,priority:1;column:cart_id" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_line_product,priority:2;column:product_id" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0;column:quantity" json:"quantity"`
	Position  int       `gorm:"not null;default:0;column:position" json:"position"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CartLine) TableName() string { return "cart_line" }
