package fulfillment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type ShipmentRepo interface {
	Create(dbc dbctx.Context, row *commerce.Shipment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Shipment, error)
	GetByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*commerce.Shipment, error)
	GetByTrackingNumber(dbc dbctx.Context, trackingNumber string) (*commerce.Shipment, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Shipment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type shipmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShipmentRepo(db *gorm.DB, baseLog *logger.Logger) ShipmentRepo {
	return &shipmentRepo{db: db, log: baseLog.With("repo", "ShipmentRepo")}
}

func (r *shipmentRepo) Create(dbc dbctx.Context, row *commerce.Shipment) error {
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

func (r *shipmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Shipment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.findOne(dbc, "id = ?", id)
}

func (r *shipmentRepo) GetByOrderID(dbc dbctx.Context, orderID uuid.UUID) (*commerce.Shipment, error) {
	if orderID == uuid.Nil {
		return nil, nil
	}
	return r.findOne(dbc, "order_id = ?", orderID)
}

func (r *shipmentRepo) GetByTrackingNumber(dbc dbctx.Context, trackingNumber string) (*commerce.Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, nil
	}
	return r.findOne(dbc, "tracking_number = ?", trackingNumber)
}

func (r *shipmentRepo) findOne(dbc dbctx.Context, where string, arg interface{}) (*commerce.Shipment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Shipment
	if err := t.WithContext(dbc.Ctx).Where(where, arg).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *shipmentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Shipment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Shipment
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

func (r *shipmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&commerce.Shipment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
