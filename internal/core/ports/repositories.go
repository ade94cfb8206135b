package ports

import (
	"context"
	"time"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// POIRepository persists points of interest.
type POIRepository interface {
	Upsert(ctx context.Context, poi *domain.POI) error
	UpsertBatch(ctx context.Context, pois []domain.POI) error
	GetByID(ctx context.Context, id string) (*domain.POI, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.POI, error)
	List(ctx context.Context, category string) ([]domain.POI, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.POI, error)
	Search(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error)
}

// AudioTrackRepository persists audio-guide tracks.
type AudioTrackRepository interface {
	Upsert(ctx context.Context, track *domain.AudioTrack) error
	UpsertBatch(ctx context.Context, tracks []domain.AudioTrack) error
	GetByID(ctx context.Context, id string) (*domain.AudioTrack, error)
	ListByPOI(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error)
}

// SessionRepository persists guide sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.GuideSession) error
	GetByID(ctx context.Context, id string) (*domain.GuideSession, error)
	Touch(ctx context.Context, id string, at time.Time) error
	SetPlaying(ctx context.Context, id string, playing bool) error
	SetGPSDisabled(ctx context.Context, id string) error
	End(ctx context.Context, id string, at time.Time) error
}

// PositionRepository persists reported position samples.
type PositionRepository interface {
	Insert(ctx context.Context, ps *domain.PositionSample) error
	LatestBySession(ctx context.Context, sessionID string, limit int) ([]domain.PositionSample, error)
}

// TriggerEventRepository persists fired geofence triggers.
type TriggerEventRepository interface {
	Insert(ctx context.Context, ev *domain.TriggerEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.TriggerEvent, error)
	FiredTrackIDs(ctx context.Context, sessionID string) ([]string, error)
}
