package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type StockMovementRepo interface {
	Create(dbc dbctx.Context, rows []*commerce.StockMovement) error
	ListByProduct(dbc dbctx.Context, productID uuid.UUID, limit int) ([]*commerce.StockMovement, error)
	// NetDelta sums all recorded deltas for a product.
	NetDelta(dbc dbctx.Context, productID uuid.UUID) (int, error)
}

type stockMovementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStockMovementRepo(db *gorm.DB, baseLog *logger.Logger) StockMovementRepo {
	return &stockMovementRepo{db: db, log: baseLog.With("repo", "StockMovementRepo")}
}

func (r *stockMovementRepo) Create(dbc dbctx.Context, rows []*commerce.StockMovement) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return t.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *stockMovementRepo) ListByProduct(dbc dbctx.Context, productID uuid.UUID, limit int) ([]*commerce.StockMovement, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.StockMovement
	if productID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	err := t.WithContext(dbc.Ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stockMovementRepo) NetDelta(dbc dbctx.Context, productID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var sum int
	err := t.WithContext(dbc.Ctx).
		Model(&commerce.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}
