package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/services"
)

type CatalogHandler struct {
	catalog   services.CatalogService
	inventory domainagg.InventoryLedger
}

func NewCatalogHandler(catalog services.CatalogService, inventory domainagg.InventoryLedger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, inventory: inventory}
}

// GET /api/categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	out, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"categories": out})
}

// POST /api/categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), middleware.ActorFrom(c), services.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"category": cat})
}

// GET /api/products?q=&category_id=&min_price=&max_price=&limit=&offset=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	limit, offset, ok := page(c)
	if !ok {
		return
	}
	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	minPrice, err := queryDecimal(c, "min_price")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	maxPrice, err := queryDecimal(c, "max_price")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	out, err := h.catalog.ListProducts(c.Request.Context(), repos.ProductFilter{
		NameContains: c.Query("q"),
		CategoryID:   categoryID,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"products": out})
}

// GET /api/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": p})
}

// POST /api/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req struct {
		CategoryID   *uuid.UUID      `json:"category_id"`
		Name         string          `json:"name"`
		Description  string          `json:"description"`
		UnitPrice    decimal.Decimal `json:"unit_price"`
		InitialStock int             `json:"initial_stock"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), middleware.ActorFrom(c), services.CreateProductInput{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"product": p})
}

// PATCH /api/products/:id
// Stock is not editable here; use the restock route.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		CategoryID    *uuid.UUID       `json:"category_id"`
		ClearCategory bool             `json:"clear_category"`
		Name          *string          `json:"name"`
		Description   *string          `json:"description"`
		UnitPrice     *decimal.Decimal `json:"unit_price"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), middleware.ActorFrom(c), id, services.UpdateProductInput{
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
		Name:          req.Name,
		Description:   req.Description,
		UnitPrice:     req.UnitPrice,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": p})
}

// POST /api/products/:id/restock
// body: { "quantity": 10 }
func (h *CatalogHandler) Restock(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.inventory.Restock(c.Request.Context(), domainagg.RestockInput{
		Actor:     middleware.ActorFrom(c),
		ProductID: id,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"product_id":  res.ProductID,
		"delta":       res.Delta,
		"stock_after": res.StockAfter,
	})
}
