package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
)

func SeedCategory(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *commerce.Category {
	tb.Helper()
	c := &commerce.Category{
		ID:   uuid.New(),
		Name: name + "-" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, price string, stock int) *commerce.Product {
	tb.Helper()
	p := &commerce.Product{
		ID:        uuid.New(),
		Name:      "product-" + uuid.NewString()[:8],
		UnitPrice: decimal.RequireFromString(price),
		Stock:     stock,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedOrder inserts an order with lines at the given quantities; subtotals use each
// product's current price. Stock is not touched.
func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, owner uuid.UUID, status string, products []*commerce.Product, qty []int) *commerce.Order {
	tb.Helper()
	now := time.Now().UTC()
	o := &commerce.Order{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	lines := make([]*commerce.OrderLine, 0, len(products))
	for i, p := range products {
		l := &commerce.OrderLine{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: p.ID,
			Quantity:  qty[i],
			UnitPrice: p.UnitPrice,
			Subtotal:  commerce.LineSubtotal(p.UnitPrice, qty[i]),
		}
		lines = append(lines, l)
	}
	o.Total = commerce.SumSubtotals(lines)
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	if len(lines) > 0 {
		if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
			tb.Fatalf("seed order lines: %v", err)
		}
	}
	return o
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, orderID uuid.UUID, amount decimal.Decimal, status string) *commerce.Payment {
	tb.Helper()
	p := &commerce.Payment{
		ID:         uuid.New(),
		OrderID:    orderID,
		Method:     commerce.PaymentMethodCard,
		AmountPaid: amount,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}

func ReloadProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, id uuid.UUID) *commerce.Product {
	tb.Helper()
	var p commerce.Product
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		tb.Fatalf("reload product: %v", err)
	}
	return &p
}

func ReloadOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, id uuid.UUID) *commerce.Order {
	tb.Helper()
	var o commerce.Order
	err := tx.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		tb.Fatalf("reload order: %v", err)
	}
	return &o
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
