package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog + inventory
		&commerce.Category{},
		&commerce.Product{},
		&commerce.StockMovement{},

		// Cart
		&commerce.Cart{},
		&commerce.CartLine{},

		// Orders
		&commerce.Order{},
		&commerce.OrderLine{},

		// Payments + shipments
		&commerce.Payment{},
		&commerce.Shipment{},

		// Event relay
		&commerce.OutboxEvent{},
	)
}

// EnsureCommerceIndexes creates the partial indexes gorm tags cannot express. The
// statements are valid on both postgres and sqlite.
func EnsureCommerceIndexes(db *gorm.DB) error {
	// At most one pending payment per order.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_order_pending
		ON payment (order_id)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("create idx_payment_order_pending: %w", err)
	}

	// Relay scan.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_outbox_event_unsent
		ON outbox_event (created_at)
		WHERE sent_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_outbox_event_unsent: %w", err)
	}

	// Expiry sweep.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_customer_order_status_created
		ON customer_order (status, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_customer_order_status_created: %w", err)
	}
	return nil
}

// Migrate runs table migration and index creation.
func Migrate(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return err
	}
	return EnsureCommerceIndexes(db)
}
