package orders

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type OrderFilter struct {
	OwnerUserID *uuid.UUID
	Status      string
	Limit       int
	Offset      int
}

type OrderRepo interface {
	// Create inserts the order header only; lines go through OrderLineRepo.
	Create(dbc dbctx.Context, row *commerce.Order) error

	GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error)
	// GetWithLines loads the order and its lines ordered by creation.
	GetWithLines(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error)
	List(dbc dbctx.Context, f OrderFilter) ([]*commerce.Order, error)
	ListByStatusBefore(dbc dbctx.Context, status string, before time.Time, limit int) ([]*commerce.Order, error)

	LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	return &orderRepo{db: db, log: baseLog.With("repo", "OrderRepo")}
}

func (r *orderRepo) Create(dbc dbctx.Context, row *commerce.Order) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Omit(clause.Associations).Create(row).Error
}

func (r *orderRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Order
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *orderRepo) GetWithLines(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Order
	err := t.WithContext(dbc.Ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *orderRepo) List(dbc dbctx.Context, f OrderFilter) ([]*commerce.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&commerce.Order{})
	if f.OwnerUserID != nil {
		q = q.Where("owner_user_id = ?", *f.OwnerUserID)
	}
	if status := commerce.NormalizeStatus(f.Status); status != "" {
		q = q.Where("status = ?", status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*commerce.Order
	err := q.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	}).
		Order("created_at DESC").
		Order("id ASC").
		Limit(limit).
		Offset(f.Offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) ListByStatusBefore(dbc dbctx.Context, status string, before time.Time, limit int) ([]*commerce.Order, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*commerce.Order
	err := t.WithContext(dbc.Ctx).
		Where("status = ? AND created_at < ?", commerce.NormalizeStatus(status), before).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Order, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Order
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *orderRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&commerce.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}
