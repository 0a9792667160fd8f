package orderexpiry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/techwave-backend/internal/authz"
	domainagg "github.com/yungbote/techwave-backend/internal/domain/aggregates"
	"github.com/yungbote/techwave-backend/internal/domain/commerce"
	"github.com/yungbote/techwave-backend/internal/observability"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// OrderCanceller is the slice of the order aggregate the activity needs.
type OrderCanceller interface {
	Cancel(ctx context.Context, in domainagg.OrderRefInput) (*commerce.Order, error)
}

type Activities struct {
	Log     *logger.Logger
	Orders  OrderCanceller
	Metrics *observability.Metrics
}

// Cancel cancels a still-pending order as the system actor. An order that has moved
// on (paid, cancelled by the customer) or no longer exists is a successful no-op.
func (a *Activities) Cancel(ctx context.Context, orderID string) (CancelResult, error) {
	res := CancelResult{OrderID: strings.TrimSpace(orderID)}
	if a == nil || a.Orders == nil {
		return res, fmt.Errorf("orderexpiry: activity not configured")
	}
	id, err := uuid.Parse(res.OrderID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("invalid order_id", "validation", err)
	}

	o, err := a.Orders.Cancel(ctx, domainagg.OrderRefInput{Actor: authz.SystemActor(), OrderID: id})
	switch {
	case err == nil:
		res.Result = ResultCancelled
		res.Status = o.Status
		a.Log.Info("Expired pending order", "order_id", id)
	case domainagg.IsCode(err, domainagg.CodeInvalidStateTransition), domainagg.IsCode(err, domainagg.CodeNotFound):
		res.Result = ResultSkipped
		a.Log.Debug("Order expiry skipped", "order_id", id, "reason", err)
	default:
		a.Metrics.IncOrderExpiry("error")
		return res, err
	}
	a.Metrics.IncOrderExpiry(res.Result)
	return res, nil
}
