package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/data/repos"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type CreateCategoryInput struct {
	Name        string
	Description string
}

type CreateProductInput struct {
	CategoryID   *uuid.UUID
	Name         string
	Description  string
	UnitPrice    decimal.Decimal
	InitialStock int
}

// UpdateProductInput patches the non-nil fields. Stock is not patchable here.
type UpdateProductInput struct {
	CategoryID    *uuid.UUID
	ClearCategory bool
	Name          *string
	Description   *string
	UnitPrice     *decimal.Decimal
}

type CatalogService interface {
	ListProducts(ctx context.Context, f repos.ProductFilter) ([]*commerce.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*commerce.Product, error)
	ListCategories(ctx context.Context) ([]*commerce.Category, error)

	CreateCategory(ctx context.Context, actor authz.Actor, in CreateCategoryInput) (*commerce.Category, error)
	CreateProduct(ctx context.Context, actor authz.Actor, in CreateProductInput) (*commerce.Product, error)
	UpdateProduct(ctx context.Context, actor authz.Actor, id uuid.UUID, in UpdateProductInput) (*commerce.Product, error)
}

type catalogService struct {
	db         *gorm.DB
	log        *logger.Logger
	products   repos.ProductRepo
	categories repos.CategoryRepo
	policy     authz.Policy
}

func NewCatalogService(db *gorm.DB, log *logger.Logger, products repos.ProductRepo, categories repos.CategoryRepo, policy authz.Policy) CatalogService {
	if policy == nil {
		policy = authz.NewRolePolicy()
	}
	return &catalogService{
		db:         db,
		log:        log.With("service", "CatalogService"),
		products:   products,
		categories: categories,
		policy:     policy,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, f repos.ProductFilter) ([]*commerce.Product, error) {
	const op = "Catalog.ListProducts"
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "min_price exceeds max_price", nil)
	}
	out, err := s.products.List(dbctx.Context{Ctx: ctx}, f)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return out, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*commerce.Product, error) {
	const op = "Catalog.GetProduct"
	p, err := s.products.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if p == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "product not found", nil)
	}
	return p, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*commerce.Category, error) {
	out, err := s.categories.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "Catalog.ListCategories", err)
	}
	return out, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, actor authz.Actor, in CreateCategoryInput) (*commerce.Category, error) {
	const op = "Catalog.CreateCategory"
	if err := s.authorizeWrite(op, actor, uuid.Nil); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "name is required", nil)
	}
	now := time.Now().UTC()
	row := &commerce.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.categories.Create(dbctx.Context{Ctx: ctx}, []*commerce.Category{row}); err != nil {
		return nil, writeError(op, "category name already exists", err)
	}
	s.log.Info("Category created", "category_id", row.ID, "name", row.Name)
	return row, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, actor authz.Actor, in CreateProductInput) (*commerce.Product, error) {
	const op = "Catalog.CreateProduct"
	if err := s.authorizeWrite(op, actor, uuid.Nil); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "name is required", nil)
	case in.UnitPrice.IsNegative():
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "unit_price must be >= 0", nil)
	case in.InitialStock < 0:
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "initial stock must be >= 0", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.requireCategory(dbc, op, in.CategoryID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := &commerce.Product{
		ID:          uuid.New(),
		CategoryID:  in.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		UnitPrice:   in.UnitPrice.Round(2),
		Stock:       in.InitialStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.products.Create(dbc, []*commerce.Product{row}); err != nil {
		return nil, writeError(op, "product already exists", err)
	}
	s.log.Info("Product created", "product_id", row.ID, "stock", row.Stock)
	return row, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor authz.Actor, id uuid.UUID, in UpdateProductInput) (*commerce.Product, error) {
	const op = "Catalog.UpdateProduct"
	if err := s.authorizeWrite(op, actor, id); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	current, err := s.products.GetByID(dbc, id)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if current == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "product not found", nil)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "name cannot be empty", nil)
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "unit_price must be >= 0", nil)
		}
		updates["unit_price"] = in.UnitPrice.Round(2)
	}
	switch {
	case in.ClearCategory:
		updates["category_id"] = nil
	case in.CategoryID != nil:
		if err := s.requireCategory(dbc, op, in.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}
	if len(updates) == 0 {
		return current, nil
	}
	if err := s.products.UpdateFields(dbc, id, updates); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return s.GetProduct(ctx, id)
}

func (s *catalogService) authorizeWrite(op string, actor authz.Actor, id uuid.UUID) error {
	res := authz.Resource{Kind: "product", ID: id}
	if err := s.policy.Authorize(actor, authz.ActionCatalogWrite, res); err != nil {
		return domainagg.NewError(domainagg.CodeUnauthorized, op, err.Error(), err)
	}
	return nil
}

func (s *catalogService) requireCategory(dbc dbctx.Context, op string, id *uuid.UUID) error {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	c, err := s.categories.GetByID(dbc, *id)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if c == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, "category not found", nil)
	}
	return nil
}

func writeError(op, dupMsg string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
		return domainagg.NewError(domainagg.CodeAlreadyExists, op, dupMsg, err)
	}
	return domainagg.Wrap(domainagg.CodeInternal, op, err)
}
