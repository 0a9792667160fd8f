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

type OrderHandler struct {
	log       *logger.Logger
	orders    domainagg.OrderAggregate
	scheduler orderexpiry.Scheduler
}

func NewOrderHandler(log *logger.Logger, orders domainagg.OrderAggregate, scheduler orderexpiry.Scheduler) *OrderHandler {
	if scheduler == nil {
		scheduler = orderexpiry.NoopScheduler{}
	}
	return &OrderHandler{log: log.With("handler", "OrderHandler"), orders: orders, scheduler: scheduler}
}

type orderLineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// GET /api/orders?status=&limit=&offset=
// Clients see their own orders; staff see all.
func (h *OrderHandler) List(c *gin.Context) {
	limit, offset, ok := page(c)
	if !ok {
		return
	}
	out, err := h.orders.List(c.Request.Context(), domainagg.ListOrdersInput{
		Actor:  middleware.ActorFrom(c),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"orders": out})
}

// POST /api/orders
// body: { "lines": [{ "product_id": "...", "quantity": 1 }] }
func (h *OrderHandler) Create(c *gin.Context) {
	var req struct {
		Lines []orderLineRequest `json:"lines"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lines := make([]domainagg.OrderLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domainagg.OrderLineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	order, err := h.orders.Create(c.Request.Context(), domainagg.CreateOrderInput{
		Actor: middleware.ActorFrom(c),
		Lines: lines,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.scheduler.ScheduleExpiry(c.Request.Context(), order.ID); err != nil {
		h.log.Warn("Order expiry scheduling failed", "order_id", order.ID, "error", err)
	}
	response.RespondCreated(c, gin.H{"order": order})
}

// GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), domainagg.OrderRefInput{
		Actor:   middleware.ActorFrom(c),
		OrderID: id,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

// POST /api/orders/:id/lines
// body: { "edits": [{ "op": "add|update|remove", "line_id": "...", "product_id": "...", "quantity": 2 }] }
// The batch applies atomically.
func (h *OrderHandler) MutateLines(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Edits []struct {
			Op        string    `json:"op"`
			LineID    uuid.UUID `json:"line_id"`
			ProductID uuid.UUID `json:"product_id"`
			Quantity  int       `json:"quantity"`
		} `json:"edits"`
	}
	if !bindJSON(c, &req) {
		return
	}
	edits := make([]domainagg.LineEdit, 0, len(req.Edits))
	for _, e := range req.Edits {
		edits = append(edits, domainagg.LineEdit{
			Op:        domainagg.LineEditOp(e.Op),
			LineID:    e.LineID,
			ProductID: e.ProductID,
			Quantity:  e.Quantity,
		})
	}
	order, err := h.orders.MutateLines(c.Request.Context(), domainagg.MutateLinesInput{
		Actor:   middleware.ActorFrom(c),
		OrderID: id,
		Edits:   edits,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

// DELETE /api/orders/:id/lines/:lineId
func (h *OrderHandler) RemoveLine(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathUUID(c, "lineId")
	if !ok {
		return
	}
	order, err := h.orders.RemoveLine(c.Request.Context(), domainagg.RemoveLineInput{
		Actor:   middleware.ActorFrom(c),
		OrderID: id,
		LineID:  lineID,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

// POST /api/orders/:id/recompute
func (h *OrderHandler) Recompute(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.RecomputeTotal(c.Request.Context(), domainagg.OrderRefInput{
		Actor:   middleware.ActorFrom(c),
		OrderID: id,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}

// PATCH /api/orders/:id/status
// body: { "status": "processing" }
func (h *OrderHandler) ApplyStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.orders.ApplyStatus(c.Request.Context(), domainagg.ApplyStatusInput{
		Actor:   middleware.ActorFrom(c),
		OrderID: id,
		Status:  req.Status,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"order": order})
}
