package postgres

import (
	"context"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// TriggerEventRepo implements ports.TriggerEventRepository with pgx.
type TriggerEventRepo struct {
	db *DB
}

// NewTriggerEventRepo creates a new TriggerEventRepo.
func NewTriggerEventRepo(db *DB) *TriggerEventRepo {
	return &TriggerEventRepo{db: db}
}

// Insert stores a fired trigger. The unique (session_id, track_id)
// constraint makes replays a no-op.
func (r *TriggerEventRepo) Insert(ctx context.Context, ev *domain.TriggerEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO trigger_events (id, session_id, track_id, poi_id, track_title,
		                            location, distance_m, auto_played, fired_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5,
		        ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography, $8, $9, $10)
		ON CONFLICT (session_id, track_id) DO NOTHING
	`, ev.ID, ev.SessionID, ev.TrackID, ev.POIID, ev.TrackTitle,
		ev.Location.Lon, ev.Location.Lat, ev.DistanceMeters, ev.AutoPlayed, ev.Time)
	return err
}

// ListBySession returns a session's fired triggers in firing order.
func (r *TriggerEventRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.TriggerEvent, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, session_id, track_id, COALESCE(poi_id::text, ''), track_title,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       distance_m, auto_played, fired_at
		FROM trigger_events
		WHERE session_id = $1
		ORDER BY fired_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TriggerEvent
	for rows.Next() {
		var ev domain.TriggerEvent
		if err := rows.Scan(
			&ev.ID, &ev.SessionID, &ev.TrackID, &ev.POIID, &ev.TrackTitle,
			&ev.Location.Lat, &ev.Location.Lon,
			&ev.DistanceMeters, &ev.AutoPlayed, &ev.Time,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// FiredTrackIDs returns the track ids already triggered in a session.
// Used to rebuild the in-memory fired set after a restart.
func (r *TriggerEventRepo) FiredTrackIDs(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT track_id FROM trigger_events WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
