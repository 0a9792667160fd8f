package aggregates

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/techwave-backend/internal/platform/dbctx"
)

// CASGuard performs compare-and-set writes on order, payment and shipment rows.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// Guarded names one row and the state it must still be in for a write to land.
// A nil Statuses or Version leaves that column unchecked.
type Guarded struct {
	Table    string
	ID       uuid.UUID
	Statuses []string
	Version  *int
}

func (g Guarded) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", g.Table, g.ID)
	if g.Statuses != nil {
		fmt.Fprintf(&b, " in status %s", strings.Join(g.Statuses, "|"))
	}
	if g.Version != nil {
		fmt.Fprintf(&b, " at version %d", *g.Version)
	}
	return b.String()
}

// AtVersion returns a copy of g that also requires version v.
func (g Guarded) AtVersion(v int) Guarded {
	g.Version = &v
	return g
}

// TryApply writes updates when the row still matches g and reports whether it did.
func (c CASGuard) TryApply(dbc dbctx.Context, g Guarded, updates map[string]any) (bool, error) {
	if err := g.validate(); err != nil {
		return false, err
	}
	db := dbc.Tx
	if db == nil {
		db = c.db
	}
	if db == nil {
		return false, ValidationError("missing db transaction context")
	}
	q := db.WithContext(dbc.Ctx).Table(g.Table).Where("id = ?", g.ID)
	if g.Statuses != nil {
		q = q.Where("status IN ?", g.Statuses)
	}
	if g.Version != nil {
		q = q.Where("version = ?", *g.Version)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Apply is TryApply with a missed guard reported as a conflict, which executeWrite
// retries against a fresh read.
func (c CASGuard) Apply(dbc dbctx.Context, g Guarded, updates map[string]any) error {
	ok, err := c.TryApply(dbc, g, updates)
	if err != nil {
		return err
	}
	if !ok {
		return ConflictError(g.String() + " changed concurrently")
	}
	return nil
}

func (g Guarded) validate() error {
	switch {
	case strings.TrimSpace(g.Table) == "" || g.ID == uuid.Nil:
		return ValidationError("table and id are required for a guarded update")
	case g.Statuses != nil && len(g.Statuses) == 0:
		return ValidationError("guarded status set must not be empty")
	case g.Version != nil && *g.Version < 0:
		return ValidationError("guarded version must be >= 0")
	}
	return nil
}
