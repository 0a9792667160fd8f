package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type PaymentRepo interface {
	Create(dbc dbctx.Context, row *commerce.Payment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Payment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Payment, error)
	ListByOrder(dbc dbctx.Context, orderID uuid.UUID) ([]*commerce.Payment, error)
	// CountByOrderAndStatus counts payments of the order in any of statuses.
	CountByOrderAndStatus(dbc dbctx.Context, orderID uuid.UUID, statuses []string) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, row *commerce.Payment) error {
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
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Payment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Payment
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *paymentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Payment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Payment
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

func (r *paymentRepo) ListByOrder(dbc dbctx.Context, orderID uuid.UUID) ([]*commerce.Payment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.Payment
	if orderID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) CountByOrderAndStatus(dbc dbctx.Context, orderID uuid.UUID, statuses []string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if orderID == uuid.Nil || len(statuses) == 0 {
		return 0, nil
	}
	err := t.WithContext(dbc.Ctx).
		Model(&commerce.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, statuses).
		Count(&n).Error
	return n, err
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&commerce.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
