package orders

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type OrderLineRepo interface {
	Create(dbc dbctx.Context, rows []*commerce.OrderLine) ([]*commerce.OrderLine, error)
	ListByOrder(dbc dbctx.Context, orderID uuid.UUID) ([]*commerce.OrderLine, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.OrderLine, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type orderLineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderLineRepo(db *gorm.DB, baseLog *logger.Logger) OrderLineRepo {
	return &orderLineRepo{db: db, log: baseLog.With("repo", "OrderLineRepo")}
}

func (r *orderLineRepo) Create(dbc dbctx.Context, rows []*commerce.OrderLine) ([]*commerce.OrderLine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*commerce.OrderLine{}, nil
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

func (r *orderLineRepo) ListByOrder(dbc dbctx.Context, orderID uuid.UUID) ([]*commerce.OrderLine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.OrderLine
	if orderID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderLineRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.OrderLine, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.OrderLine
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *orderLineRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&commerce.OrderLine{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *orderLineRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&commerce.OrderLine{})
	return res.RowsAffected, res.Error
}
