package app

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/events"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/envutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
	"github.com/yungbote/techwave-backend/internal/services"
	"github.com/yungbote/techwave-backend/internal/temporalx"
	"github.com/yungbote/techwave-backend/internal/temporalx/orderexpiry"
)

type Services struct {
	Auth    services.AuthService
	Catalog services.CatalogService

	Inventory domainagg.InventoryLedger
	Orders    domainagg.OrderAggregate
	Carts     domainagg.CartAggregate
	Payments  domainagg.PaymentProcess
	Shipments domainagg.ShipmentProcess

	Relay     *events.Relay
	Scheduler orderexpiry.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	policy := authz.NewRolePolicy()

	base := aggregates.BaseDeps{
		DB:       db,
		Log:      log,
		Runner:   aggregates.NewGormTxRunner(db, aggregates.WithLockTimeout(envutil.Duration("AGGREGATE_LOCK_TIMEOUT", 5*time.Second))),
		Hooks: aggregates.CombineHooks(
			aggregates.NewObservabilityHooks(metrics),
			aggregates.NewLogHooks(log, envutil.Duration("AGGREGATE_SLOW_WRITE", 500*time.Millisecond)),
		),
		CASGuard: aggregates.NewCASGuard(db),
		Policy:   policy,
		Outbox:   r.Outbox,
	}

	inventory := aggregates.NewInventoryLedger(aggregates.InventoryLedgerDeps{
		Base:      base,
		Products:  r.Product,
		Movements: r.StockMovement,
	})
	orders := aggregates.NewOrderAggregate(aggregates.OrderAggregateDeps{
		Base:       base,
		Orders:     r.Order,
		OrderLines: r.OrderLine,
		Inventory:  inventory,
	})
	carts := aggregates.NewCartAggregate(aggregates.CartAggregateDeps{
		Base:       base,
		Carts:      r.Cart,
		CartLines:  r.CartLine,
		Products:   r.Product,
		Orders:     r.Order,
		OrderLines: r.OrderLine,
		Inventory:  inventory,
	})
	payments := aggregates.NewPaymentProcess(aggregates.PaymentProcessDeps{
		Base:        base,
		Payments:    r.Payment,
		Orders:      r.Order,
		OrderLines:  r.OrderLine,
		OrderStatus: orders,
	})
	allowPending := cfg.ShipmentAllowPending
	shipments := aggregates.NewShipmentProcess(aggregates.ShipmentProcessDeps{
		Base:         base,
		Shipments:    r.Shipment,
		Orders:       r.Order,
		OrderStatus:  orders,
		AllowPending: &allowPending,
	})

	for _, agg := range []domainagg.Aggregate{inventory, orders, carts, payments, shipments} {
		log.Debug("Aggregate wired", agg.Contract().LogFields()...)
	}

	temporalCfg := temporalx.LoadConfig()
	return Services{
		Auth:    services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer, cfg.AccessTokenTTL),
		Catalog: services.NewCatalogService(db, log, r.Product, r.Category, policy),

		Inventory: inventory,
		Orders:    orders,
		Carts:     carts,
		Payments:  payments,
		Shipments: shipments,

		Relay:     events.NewRelay(db, log, r.Outbox, c.Publisher, metrics, events.LoadRelayConfig()),
		Scheduler: orderexpiry.NewScheduler(log, c.Temporal, temporalCfg.TaskQueue, temporalCfg.OrderPendingTTL),
	}
}
