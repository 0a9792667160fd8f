package orderexpiry

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// Scheduler starts the expiry timer for a freshly created order.
type Scheduler interface {
	ScheduleExpiry(ctx context.Context, orderID uuid.UUID) error
}

type temporalScheduler struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
	ttl       time.Duration
}

// NewScheduler returns a no-op scheduler when tc is nil.
func NewScheduler(log *logger.Logger, tc temporalsdkclient.Client, taskQueue string, ttl time.Duration) Scheduler {
	if tc == nil {
		return NoopScheduler{}
	}
	return &temporalScheduler{
		log:       log.With("component", "OrderExpiryScheduler"),
		tc:        tc,
		taskQueue: taskQueue,
		ttl:       ttl,
	}
}

func (s *temporalScheduler) ScheduleExpiry(ctx context.Context, orderID uuid.UUID) error {
	id := orderID.String()
	_, err := s.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(id),
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, WorkflowName, Input{OrderID: id, TTL: s.ttl})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Debug("Order expiry scheduled", "order_id", id, "ttl", s.ttl)
	return nil
}

type NoopScheduler struct{}

func (NoopScheduler) ScheduleExpiry(context.Context, uuid.UUID) error { return nil }
