package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type CartRepo interface {
	GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*commerce.Cart, error)
	// EnsureForOwner returns the owner's cart, creating it on first use. Concurrent
	// callers converge on the same row through the owner unique index.
	EnsureForOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*commerce.Cart, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Cart, error)
	Touch(dbc dbctx.Context, id uuid.UUID) error
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	return &cartRepo{db: db, log: baseLog.With("repo", "CartRepo")}
}

func (r *cartRepo) GetByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*commerce.Cart, error) {
	if ownerUserID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Cart
	if err := t.WithContext(dbc.Ctx).Where("owner_user_id = ?", ownerUserID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *cartRepo) EnsureForOwner(dbc dbctx.Context, ownerUserID uuid.UUID) (*commerce.Cart, error) {
	if ownerUserID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	row := &commerce.Cart{ID: uuid.New(), OwnerUserID: ownerUserID, CreatedAt: now, UpdatedAt: now}
	err := t.WithContext(dbc.Ctx).
		Omit("Lines").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_user_id"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetByOwner(dbc, ownerUserID)
}

func (r *cartRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*commerce.Cart, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.Cart
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

func (r *cartRepo) Touch(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&commerce.Cart{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}
