package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/data/repos/cart"
	"github.com/yungbote/techwave-backend/internal/data/repos/catalog"
	"github.com/yungbote/techwave-backend/internal/data/repos/fulfillment"
	"github.com/yungbote/techwave-backend/internal/data/repos/orders"
	"github.com/yungbote/techwave-backend/internal/data/repos/outbox"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type CategoryRepo = catalog.CategoryRepo
type ProductRepo = catalog.ProductRepo
type ProductFilter = catalog.ProductFilter
type StockMovementRepo = catalog.StockMovementRepo

type CartRepo = cart.CartRepo
type CartLineRepo = cart.CartLineRepo

type OrderRepo = orders.OrderRepo
type OrderFilter = orders.OrderFilter
type OrderLineRepo = orders.OrderLineRepo

type PaymentRepo = fulfillment.PaymentRepo
type ShipmentRepo = fulfillment.ShipmentRepo

type OutboxRepo = outbox.OutboxRepo

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return catalog.NewCategoryRepo(db, baseLog)
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return catalog.NewProductRepo(db, baseLog)
}

func NewStockMovementRepo(db *gorm.DB, baseLog *logger.Logger) StockMovementRepo {
	return catalog.NewStockMovementRepo(db, baseLog)
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return cart.NewCartRepo(db, baseLog)
}

func NewCartLineRepo(db *gorm.DB, baseLog *logger.Logger) CartLineRepo {
	return cart.NewCartLineRepo(db, baseLog)
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return orders.NewOrderRepo(db, baseLog)
}

func NewOrderLineRepo(db *gorm.DB, baseLog *logger.Logger) OrderLineRepo {
	return orders.NewOrderLineRepo(db, baseLog)
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return fulfillment.NewPaymentRepo(db, baseLog)
}

func NewShipmentRepo(db *gorm.DB, baseLog *logger.Logger) ShipmentRepo {
	return fulfillment.NewShipmentRepo(db, baseLog)
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return outbox.NewOutboxRepo(db, baseLog)
}

var SortedUniqueIDs = catalog.SortedUniqueIDs
