package catalog

import (
	"bytes"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// ProductFilter mirrors the storefront listing filters.
type ProductFilter struct {
	NameContains string
	CategoryID   *uuid.UUID
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Limit        int
	Offset       int
}

type ProductRepo interface {
	Create(dbc dbctx.Context, rows []*commerce.Product) ([]*commerce.Product, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*commerce.Product, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Product, error)
	List(dbc dbctx.Context, f ProductFilter) ([]*commerce.Product, error)

	// LockByIDs locks rows FOR UPDATE in ascending id order.
	LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*commerce.Product, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	// DecrementStockIfAvailable is a guarded compare-and-decrement. ok=false means
	// the row is missing or holds fewer than qty units; nothing was written.
	DecrementStockIfAvailable(dbc dbctx.Context, id uuid.UUID, qty int) (bool, error)
	IncrementStock(dbc dbctx.Context, id uuid.UUID, qty int) (bool, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) Create(dbc dbctx.Context, rows []*commerce.Product) ([]*commerce.Product, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*commerce.Product{}, nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *productRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*commerce.Product, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Product, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *productRepo) List(dbc dbctx.Context, f ProductFilter) ([]*commerce.Product, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&commerce.Product{})
	if name := strings.TrimSpace(f.NameContains); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if f.CategoryID != nil && *f.CategoryID != uuid.Nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("unit_price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("unit_price <= ?", *f.MaxPrice)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*commerce.Product
	if err := q.Order("name ASC").Order("id ASC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) LockByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*commerce.Product, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	ids = SortedUniqueIDs(ids)
	var out []*commerce.Product
	if len(ids) == 0 {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	delete(updates, "stock")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&commerce.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *productRepo) DecrementStockIfAvailable(dbc dbctx.Context, id uuid.UUID, qty int) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || qty <= 0 {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&commerce.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *productRepo) IncrementStock(dbc dbctx.Context, id uuid.UUID, qty int) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || qty <= 0 {
		return false, nil
	}
	res := t.WithContext(dbc.Ctx).
		Model(&commerce.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SortedUniqueIDs returns ids deduplicated and in ascending byte order, which is the
// lock acquisition order for every multi-product write.
func SortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
