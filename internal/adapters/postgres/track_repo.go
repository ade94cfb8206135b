package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// TrackRepo implements ports.AudioTrackRepository with pgx.
type TrackRepo struct {
	db *DB
}

// NewTrackRepo creates a new TrackRepo.
func NewTrackRepo(db *DB) *TrackRepo {
	return &TrackRepo{db: db}
}

const trackUpsertSQL = `
	INSERT INTO audio_tracks (track_id, poi_id, title, description, language,
	                          audio_url, duration_seconds, position,
	                          geofence_location, geofence_radius_m, auto_trigger)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
	        CASE WHEN $9::float8 IS NULL THEN NULL
	             ELSE ST_SetSRID(ST_MakePoint($10, $9), 4326)::geography END,
	        $11, $12)
	ON CONFLICT (track_id, language) DO UPDATE
	SET title = EXCLUDED.title, description = EXCLUDED.description,
	    audio_url = EXCLUDED.audio_url,
	    duration_seconds = EXCLUDED.duration_seconds,
	    position = EXCLUDED.position,
	    geofence_location = EXCLUDED.geofence_location,
	    geofence_radius_m = EXCLUDED.geofence_radius_m,
	    auto_trigger = EXCLUDED.auto_trigger
`

func trackUpsertArgs(t *domain.AudioTrack) []any {
	var lat, lon, radius *float64
	autoTrigger := false
	if t.Geofence != nil {
		lat = &t.Geofence.Location.Lat
		lon = &t.Geofence.Location.Lon
		radius = &t.Geofence.RadiusMeters
		autoTrigger = t.Geofence.AutoTrigger
	}
	return []any{
		t.TrackID, t.POIID, t.Title, t.Description, t.Language,
		t.AudioURL, t.DurationSeconds, t.Position,
		lat, lon, radius, autoTrigger,
	}
}

// Upsert inserts or updates a single track.
func (r *TrackRepo) Upsert(ctx context.Context, t *domain.AudioTrack) error {
	_, err := r.db.Pool.Exec(ctx, trackUpsertSQL, trackUpsertArgs(t)...)
	return err
}

// UpsertBatch inserts many tracks using pgx.Batch.
func (r *TrackRepo) UpsertBatch(ctx context.Context, tracks []domain.AudioTrack) error {
	batch := &pgx.Batch{}
	for i := range tracks {
		batch.Queue(trackUpsertSQL, trackUpsertArgs(&tracks[i])...)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range tracks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

const trackSelectSQL = `
	SELECT id, track_id, poi_id, title, COALESCE(description, ''), language,
	       audio_url, duration_seconds, position,
	       ST_Y(geofence_location::geometry),
	       ST_X(geofence_location::geometry),
	       geofence_radius_m, auto_trigger, created_at
	FROM audio_tracks`

// GetByID returns a track by UUID.
func (r *TrackRepo) GetByID(ctx context.Context, id string) (*domain.AudioTrack, error) {
	row := r.db.Pool.QueryRow(ctx, trackSelectSQL+` WHERE id = $1`, id)
	return scanTrack(row)
}

// ListByPOI returns a POI's tracks in playlist order for one language.
func (r *TrackRepo) ListByPOI(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
	rows, err := r.db.Pool.Query(ctx,
		trackSelectSQL+` WHERE poi_id = $1 AND language = $2 ORDER BY position`,
		poiID, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []domain.AudioTrack
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func scanTrack(row pgx.Row) (*domain.AudioTrack, error) {
	var t domain.AudioTrack
	var lat, lon, radius *float64
	var autoTrigger bool
	err := row.Scan(
		&t.ID, &t.TrackID, &t.POIID, &t.Title, &t.Description, &t.Language,
		&t.AudioURL, &t.DurationSeconds, &t.Position,
		&lat, &lon, &radius, &autoTrigger, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil && radius != nil {
		t.Geofence = &domain.Geofence{
			Location:     domain.GeoPoint{Lat: *lat, Lon: *lon},
			RadiusMeters: *radius,
			AutoTrigger:  autoTrigger,
		}
	}
	return &t, nil
}
