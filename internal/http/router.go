package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	redisclient "github.com/yungbote/techwave-backend/internal/clients/redis"
	httpH "github.com/yungbote/techwave-backend/internal/http/handlers"
	httpMW "github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	Idempotency           redisclient.IdempotencyStore
	IdempotencyTTL        time.Duration
	IdempotencyPendingTTL time.Duration

	AuthHandler     *httpH.AuthHandler
	CatalogHandler  *httpH.CatalogHandler
	CartHandler     *httpH.CartHandler
	OrderHandler    *httpH.OrderHandler
	PaymentHandler  *httpH.PaymentHandler
	ShipmentHandler *httpH.ShipmentHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "techwave-api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Catalog reads are public
	public := api.Group("/")
	if cfg.AuthMiddleware != nil {
		public.Use(cfg.AuthMiddleware.OptionalAuth())
	}
	if cfg.CatalogHandler != nil {
		public.GET("/categories", cfg.CatalogHandler.ListCategories)
		public.GET("/products", cfg.CatalogHandler.ListProducts)
		public.GET("/products/:id", cfg.CatalogHandler.GetProduct)
	}

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		protected.Use(httpMW.Idempotency(log, cfg.Idempotency, cfg.IdempotencyTTL, cfg.IdempotencyPendingTTL, cfg.Metrics))

		// Auth
		if cfg.AuthHandler != nil {
			protected.GET("/me", cfg.AuthHandler.Me)
			protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
		}

		// Catalog writes
		if cfg.CatalogHandler != nil {
			protected.POST("/categories", cfg.CatalogHandler.CreateCategory)
			protected.POST("/products", cfg.CatalogHandler.CreateProduct)
			protected.PATCH("/products/:id", cfg.CatalogHandler.UpdateProduct)
			protected.POST("/products/:id/restock", cfg.CatalogHandler.Restock)
		}

		// Cart
		if cfg.CartHandler != nil {
			protected.GET("/cart", cfg.CartHandler.Get)
			protected.DELETE("/cart", cfg.CartHandler.Clear)
			protected.POST("/cart/items", cfg.CartHandler.AddItem)
			protected.PATCH("/cart/items/:productId", cfg.CartHandler.UpdateItem)
			protected.DELETE("/cart/items/:productId", cfg.CartHandler.RemoveItem)
			protected.POST("/cart/checkout", cfg.CartHandler.Checkout)
		}

		// Orders
		if cfg.OrderHandler != nil {
			protected.GET("/orders", cfg.OrderHandler.List)
			protected.POST("/orders", cfg.OrderHandler.Create)
			protected.GET("/orders/:id", cfg.OrderHandler.Get)
			protected.POST("/orders/:id/cancel", cfg.OrderHandler.Cancel)
			protected.PATCH("/orders/:id/status", cfg.OrderHandler.ApplyStatus)
			protected.POST("/orders/:id/lines", cfg.OrderHandler.MutateLines)
			protected.DELETE("/orders/:id/lines/:lineId", cfg.OrderHandler.RemoveLine)
			protected.POST("/orders/:id/recompute", cfg.OrderHandler.Recompute)
		}

		// Payments
		if cfg.PaymentHandler != nil {
			protected.POST("/orders/:id/payments", cfg.PaymentHandler.Create)
			protected.GET("/orders/:id/payments", cfg.PaymentHandler.ListByOrder)
			protected.GET("/payments/:id", cfg.PaymentHandler.Get)
			protected.POST("/payments/:id/complete", cfg.PaymentHandler.Complete)
			protected.POST("/payments/:id/cancel", cfg.PaymentHandler.Cancel)
		}

		// Shipments
		if cfg.ShipmentHandler != nil {
			protected.POST("/orders/:id/shipment", cfg.ShipmentHandler.Create)
			protected.GET("/orders/:id/shipment", cfg.ShipmentHandler.GetByOrder)
			protected.PATCH("/shipments/:id/status", cfg.ShipmentHandler.UpdateStatus)
			protected.PUT("/shipments/:id/tracking", cfg.ShipmentHandler.AssignTracking)
			protected.GET("/shipments/track/:trackingNumber", cfg.ShipmentHandler.Track)
		}
	}

	return r
}
