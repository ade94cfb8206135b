package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// NotificationInput is the input for the trigger notification workflow.
type NotificationInput struct {
	SessionID      string
	TrackID        string
	TrackTitle     string
	DistanceMeters float64
}

// TriggerNotificationWorkflow orchestrates delivering a push notification for
// a fired geofence trigger: resolve the track copy, claim the delivery slot,
// and send the push. If the push fails after retries, the delivery claim is
// released so a later attempt can go through (saga compensation).
func TriggerNotificationWorkflow(ctx workflow.Context, input NotificationInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting trigger notification workflow",
		"sessionID", input.SessionID, "trackID", input.TrackID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Resolve the notification copy from the track
	var text NotificationCopy
	err := workflow.ExecuteActivity(ctx, "ResolveTrackCopy", input.TrackID, input.TrackTitle, input.DistanceMeters).Get(ctx, &text)
	if err != nil {
		return err
	}

	// Step 2: Claim the delivery slot (per session+track, dedupes redeliveries)
	var claimed bool
	err = workflow.ExecuteActivity(ctx, "ClaimDelivery", input.SessionID, input.TrackID).Get(ctx, &claimed)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("notification already delivered, skipping",
			"sessionID", input.SessionID, "trackID", input.TrackID)
		return nil
	}

	// Step 3: Send push notification
	err = workflow.ExecuteActivity(ctx, "SendTriggerPush", input.SessionID, text).Get(ctx, nil)
	if err != nil {
		logger.Warn("push notification failed, releasing delivery claim", "error", err)
		// Compensate: release the claim so a retry can deliver
		_ = workflow.ExecuteActivity(ctx, "ReleaseDelivery", input.SessionID, input.TrackID).Get(ctx, nil)
		return err
	}

	logger.Info("trigger notification delivered", "trackID", input.TrackID)
	return nil
}
