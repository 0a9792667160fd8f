package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/data/repos"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type Repos struct {
	Category      repos.CategoryRepo
	Product       repos.ProductRepo
	StockMovement repos.StockMovementRepo
	Cart          repos.CartRepo
	CartLine      repos.CartLineRepo
	Order         repos.OrderRepo
	OrderLine     repos.OrderLineRepo
	Payment       repos.PaymentRepo
	Shipment      repos.ShipmentRepo
	Outbox        repos.OutboxRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Category:      repos.NewCategoryRepo(db, log),
		Product:       repos.NewProductRepo(db, log),
		StockMovement: repos.NewStockMovementRepo(db, log),
		Cart:          repos.NewCartRepo(db, log),
		CartLine:      repos.NewCartLineRepo(db, log),
		Order:         repos.NewOrderRepo(db, log),
		OrderLine:     repos.NewOrderLineRepo(db, log),
		Payment:       repos.NewPaymentRepo(db, log),
		Shipment:      repos.NewShipmentRepo(db, log),
		Outbox:        repos.NewOutboxRepo(db, log),
	}
}
