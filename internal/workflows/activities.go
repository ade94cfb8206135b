package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
)

// NotificationCopy is the resolved title and body for a trigger push.
type NotificationCopy struct {
	Title string
	Body  string
}

// NotificationActivities holds the activity implementations for the trigger
// notification workflow.
type NotificationActivities struct {
	Tracks   ports.AudioTrackRepository
	Cache    ports.CacheService
	Notifier ports.NotificationService
}

// ResolveTrackCopy builds the push title and body from the track record,
// falling back to the title carried in the trigger event when the track
// has been deleted since the trigger fired.
func (a *NotificationActivities) ResolveTrackCopy(ctx context.Context, trackID, fallbackTitle string, distanceMeters float64) (NotificationCopy, error) {
	title := fallbackTitle
	body := ""

	if a.Tracks != nil {
		track, err := a.Tracks.GetByID(ctx, trackID)
		if err == nil {
			title = track.Title
			body = track.Description
		}
	}

	if title == "" {
		return NotificationCopy{}, fmt.Errorf("track %s has no resolvable title", trackID)
	}
	if body == "" {
		body = fmt.Sprintf("You are %.0f m from %s. Tap to listen.", distanceMeters, title)
	}
	return NotificationCopy{Title: title, Body: body}, nil
}

// ClaimDelivery marks the session+track pair as delivered. Returns false when
// another delivery path (a previous workflow run, or the inline push in the
// trigger pipeline) already claimed it, which makes redeliveries a no-op.
func (a *NotificationActivities) ClaimDelivery(ctx context.Context, sessionID, trackID string) (bool, error) {
	if a.Cache == nil {
		return true, nil
	}
	added, err := a.Cache.AddToSet(ctx, domain.DeliveryClaimKey(sessionID), trackID, domain.DeliveryClaimTTLSeconds)
	if err != nil {
		return false, fmt.Errorf("claim delivery %s/%s: %w", sessionID, trackID, err)
	}
	return added, nil
}

// SendTriggerPush sends the push notification to the session's client.
func (a *NotificationActivities) SendTriggerPush(ctx context.Context, sessionID string, text NotificationCopy) error {
	if a.Notifier == nil {
		log.Printf("PUSH (no notifier) session=%s title=%q", sessionID, text.Title)
		return nil
	}
	return a.Notifier.SendPush(ctx, sessionID, text.Title, text.Body)
}

// ReleaseDelivery drops the delivery claim (saga compensation / rollback).
func (a *NotificationActivities) ReleaseDelivery(ctx context.Context, sessionID, trackID string) error {
	if a.Cache == nil {
		return nil
	}
	if err := a.Cache.RemoveFromSet(ctx, domain.DeliveryClaimKey(sessionID), trackID); err != nil {
		return fmt.Errorf("release delivery %s/%s: %w", sessionID, trackID, err)
	}
	log.Printf("Delivery claim %s/%s released (saga compensation)", sessionID, trackID)
	return nil
}
