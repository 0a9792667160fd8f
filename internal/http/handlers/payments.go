package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/http/response"
)

type PaymentHandler struct {
	payments domainagg.PaymentProcess
}

func NewPaymentHandler(payments domainagg.PaymentProcess) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// POST /api/orders/:id/payments
// body: { "method": "card|paypal|bank_transfer", "amount": "12.50" }
// amount is optional; the payment is always captured at the order total and a
// differing amount is logged and ignored.
func (h *PaymentHandler) Create(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Method string           `json:"method"`
		Amount *decimal.Decimal `json:"amount"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pay, err := h.payments.Create(c.Request.Context(), domainagg.CreatePaymentInput{
		Actor:           middleware.ActorFrom(c),
		OrderID:         orderID,
		Method:          req.Method,
		RequestedAmount: req.Amount,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"payment": pay})
}

// GET /api/orders/:id/payments
func (h *PaymentHandler) ListByOrder(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.payments.ListByOrder(c.Request.Context(), middleware.ActorFrom(c), orderID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payments": out})
}

// GET /api/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	pay, err := h.payments.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"payment": pay})
}

// POST /api/payments/:id/complete
func (h *PaymentHandler) Complete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.Complete(c.Request.Context(), domainagg.PaymentRefInput{
		Actor:     middleware.ActorFrom(c),
		PaymentID: id,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/payments/:id/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.payments.Cancel(c.Request.Context(), domainagg.PaymentRefInput{
		Actor:     middleware.ActorFrom(c),
		PaymentID: id,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
