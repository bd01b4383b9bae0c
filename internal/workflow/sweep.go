package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ExpireSubscriptionsWorkflow is a cron workflow that transitions overdue
// active subscriptions to expired. Per-record failures are tolerated inside
// the activity; the workflow fails only when the sweep itself cannot run.
func ExpireSubscriptionsWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var expired int
	if err := workflow.ExecuteActivity(ctx, "SweepExpiredSubscriptions").Get(ctx, &expired); err != nil {
		return err
	}

	workflow.GetLogger(ctx).Info("expired overdue subscriptions", "count", expired)
	return nil
}

// CheckUserSubscriptionWorkflow runs the expiration check for one user. Used
// for targeted re-checks triggered outside the HTTP API.
func CheckUserSubscriptionWorkflow(ctx workflow.Context, userID string) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	return workflow.ExecuteActivity(ctx, "SweepUserSubscription", userID).Get(ctx, nil)
}
