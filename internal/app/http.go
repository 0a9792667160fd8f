package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/http"
	httpH "github.com/yungbote/techwave-backend/internal/http/handlers"
	httpMW "github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Catalog  *httpH.CatalogHandler
	Cart     *httpH.CartHandler
	Order    *httpH.OrderHandler
	Payment  *httpH.PaymentHandler
	Shipment *httpH.ShipmentHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		Catalog:  httpH.NewCatalogHandler(services.Catalog, services.Inventory),
		Cart:     httpH.NewCartHandler(log, services.Carts, services.Scheduler),
		Order:    httpH.NewOrderHandler(log, services.Orders, services.Scheduler),
		Payment:  httpH.NewPaymentHandler(services.Payments),
		Shipment: httpH.NewShipmentHandler(services.Shipments),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		Idempotency:     clients.Idempotency,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		CatalogHandler:  handlers.Catalog,
		CartHandler:     handlers.Cart,
		OrderHandler:    handlers.Order,
		PaymentHandler:  handlers.Payment,
		ShipmentHandler: handlers.Shipment,

		IdempotencyPendingTTL: cfg.IdempotencyPendingTTL,
	})
}
