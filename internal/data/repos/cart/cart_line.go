package cart

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

type CartLineRepo interface {
	Create(dbc dbctx.Context, row *commerce.CartLine) error
	// ListByCart returns lines in insertion order.
	ListByCart(dbc dbctx.Context, cartID uuid.UUID) ([]*commerce.CartLine, error)
	GetByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*commerce.CartLine, error)
	SetQuantity(dbc dbctx.Context, id uuid.UUID, quantity int) error
	DeleteByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (int64, error)
	DeleteByCart(dbc dbctx.Context, cartID uuid.UUID) (int64, error)
	NextPosition(dbc dbctx.Context, cartID uuid.UUID) (int, error)
}

type cartLineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartLineRepo(db *gorm.DB, baseLog *logger.Logger) CartLineRepo {
	return &cartLineRepo{db: db, log: baseLog.With("repo", "CartLineRepo")}
}

func (r *cartLineRepo) Create(dbc dbctx.Context, row *commerce.CartLine) error {
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

func (r *cartLineRepo) ListByCart(dbc dbctx.Context, cartID uuid.UUID) ([]*commerce.CartLine, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*commerce.CartLine
	if cartID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("cart_id = ?", cartID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *cartLineRepo) GetByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (*commerce.CartLine, error) {
	if cartID == uuid.Nil || productID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row commerce.CartLine
	err := t.WithContext(dbc.Ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
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

func (r *cartLineRepo) SetQuantity(dbc dbctx.Context, id uuid.UUID, quantity int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Model(&commerce.CartLine{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *cartLineRepo) DeleteByCartAndProduct(dbc dbctx.Context, cartID, productID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&commerce.CartLine{})
	return res.RowsAffected, res.Error
}

func (r *cartLineRepo) DeleteByCart(dbc dbctx.Context, cartID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("cart_id = ?", cartID).
		Delete(&commerce.CartLine{})
	return res.RowsAffected, res.Error
}

func (r *cartLineRepo) NextPosition(dbc dbctx.Context, cartID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var max int
	err := t.WithContext(dbc.Ctx).
		Model(&commerce.CartLine{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(MAX(position), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
