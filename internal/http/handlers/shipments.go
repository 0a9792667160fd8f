package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/http/response"
)

type ShipmentHandler struct {
	shipments domainagg.ShipmentProcess
}

func NewShipmentHandler(shipments domainagg.ShipmentProcess) *ShipmentHandler {
	return &ShipmentHandler{shipments: shipments}
}

// POST /api/orders/:id/shipment
func (h *ShipmentHandler) Create(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		DestinationAddress string     `json:"destination_address"`
		Carrier            string     `json:"carrier"`
		TrackingNumber     string     `json:"tracking_number"`
		EstimatedDelivery  *time.Time `json:"estimated_delivery"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sh, err := h.shipments.Create(c.Request.Context(), domainagg.CreateShipmentInput{
		Actor:              middleware.ActorFrom(c),
		OrderID:            orderID,
		DestinationAddress: req.DestinationAddress,
		Carrier:            req.Carrier,
		TrackingNumber:     req.TrackingNumber,
		EstimatedDelivery:  req.EstimatedDelivery,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"shipment": sh})
}

// GET /api/orders/:id/shipment
func (h *ShipmentHandler) GetByOrder(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	sh, err := h.shipments.GetByOrder(c.Request.Context(), middleware.ActorFrom(c), orderID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"shipment": sh})
}

// PATCH /api/shipments/:id/status
// body: { "status": "in_transit" }
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
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
	res, err := h.shipments.UpdateStatus(c.Request.Context(), domainagg.UpdateShipmentStatusInput{
		Actor:      middleware.ActorFrom(c),
		ShipmentID: id,
		Status:     req.Status,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// PUT /api/shipments/:id/tracking
// body: { "tracking_number": "..." }
func (h *ShipmentHandler) AssignTracking(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TrackingNumber string `json:"tracking_number"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sh, err := h.shipments.AssignTracking(c.Request.Context(), domainagg.AssignTrackingInput{
		Actor:          middleware.ActorFrom(c),
		ShipmentID:     id,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"shipment": sh})
}

// GET /api/shipments/track/:trackingNumber
func (h *ShipmentHandler) Track(c *gin.Context) {
	res, err := h.shipments.Track(c.Request.Context(), middleware.ActorFrom(c), c.Param("trackingNumber"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}
