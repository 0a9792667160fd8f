package orderexpiry

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow waits out the pending TTL, then cancels the order if it is still pending.
func Workflow(ctx workflow.Context, in Input) (CancelResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return CancelResult{}, fmt.Errorf("orderexpiry: missing order_id")
	}
	if in.TTL > 0 {
		if err := workflow.Sleep(ctx, in.TTL); err != nil {
			return CancelResult{}, err
		}
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	})

	var out CancelResult
	if err := workflow.ExecuteActivity(ctx, ActivityCancel, orderID).Get(ctx, &out); err != nil {
		return CancelResult{}, err
	}
	workflow.GetLogger(ctx).Info("Order expiry finished", "order_id", orderID, "result", out.Result)
	return out, nil
}
