package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
	"github.com/yungbote/techwave-backend/internal/temporalx/orderexpiry"
)

type CartHandler struct {
	log       *logger.Logger
	cart      domainagg.CartAggregate
	scheduler orderexpiry.Scheduler
}

func NewCartHandler(log *logger.Logger, cart domainagg.CartAggregate, scheduler orderexpiry.Scheduler) *CartHandler {
	if scheduler == nil {
		scheduler = orderexpiry.NoopScheduler{}
	}
	return &CartHandler{log: log.With("handler", "CartHandler"), cart: cart, scheduler: scheduler}
}

// GET /api/cart
func (h *CartHandler) Get(c *gin.Context) {
	view, err := h.cart.Get(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": view})
}

// POST /api/cart/items
// body: { "product_id": "...", "quantity": 2 }
func (h *CartHandler) AddItem(c *gin.Context) {
	var req struct {
		ProductID uuid.UUID `json:"product_id"`
		Quantity  int       `json:"quantity"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.cart.AddItem(c.Request.Context(), domainagg.CartItemInput{
		Actor:     middleware.ActorFrom(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": view})
}

// PATCH /api/cart/items/:productId
// body: { "quantity": 3 }; zero removes the line.
func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.cart.UpdateQuantity(c.Request.Context(), domainagg.CartItemInput{
		Actor:     middleware.ActorFrom(c),
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": view})
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}
	view, err := h.cart.RemoveItem(c.Request.Context(), domainagg.CartItemInput{
		Actor:     middleware.ActorFrom(c),
		ProductID: productID,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cart": view})
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), middleware.ActorFrom(c)); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/cart/checkout
func (h *CartHandler) Checkout(c *gin.Context) {
	order, err := h.cart.Checkout(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.scheduler.ScheduleExpiry(c.Request.Context(), order.ID); err != nil {
		// the order stands; it just will not auto-expire
		h.log.Warn("Order expiry scheduling failed", "order_id", order.ID, "error", err)
	}
	response.RespondCreated(c, gin.H{"order": order})
}
