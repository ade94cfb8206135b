package ports

import (
	"context"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishPositionSample(ctx context.Context, ps *domain.PositionSample) error
	PublishTriggerEvent(ctx context.Context, ev *domain.TriggerEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePositionSamples(ctx context.Context, handler func(ctx context.Context, ps *domain.PositionSample) error) error
	SubscribeTriggerEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.TriggerEvent) error) error
}

// CacheService provides read-through caching and the cross-process
// fired-track set for guide sessions.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
	AddToSet(ctx context.Context, key string, member string, ttlSeconds int) (bool, error)
	RemoveFromSet(ctx context.Context, key string, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

// NotificationService sends notifications (push, email, etc.).
type NotificationService interface {
	SendPush(ctx context.Context, sessionID, title, body string) error
}
