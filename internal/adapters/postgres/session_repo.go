package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// SessionRepo implements ports.SessionRepository with pgx.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new guide session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.GuideSession) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO guide_sessions (id, poi_id, language, playing, gps_disabled, started_at, last_seen_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
	`, s.ID, s.POIID, s.Language, s.Playing, s.GPSDisabled, s.StartedAt, s.LastSeenAt)
	return err
}

// GetByID returns a session by UUID.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.GuideSession, error) {
	var s domain.GuideSession
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, COALESCE(poi_id::text, ''), language, playing, gps_disabled,
		       started_at, last_seen_at, ended_at
		FROM guide_sessions WHERE id = $1
	`, id).Scan(
		&s.ID, &s.POIID, &s.Language, &s.Playing, &s.GPSDisabled,
		&s.StartedAt, &s.LastSeenAt, &s.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Touch bumps a session's last-seen timestamp.
func (r *SessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE guide_sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetPlaying records whether the client's player is active.
func (r *SessionRepo) SetPlaying(ctx context.Context, id string, playing bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE guide_sessions SET playing = $2 WHERE id = $1`, id, playing)
	return err
}

// SetGPSDisabled marks that the client reported a geolocation failure.
func (r *SessionRepo) SetGPSDisabled(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE guide_sessions SET gps_disabled = TRUE WHERE id = $1`, id)
	return err
}

// End closes a session.
func (r *SessionRepo) End(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE guide_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`, id, at)
	return err
}
