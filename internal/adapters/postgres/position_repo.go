package postgres

import (
	"context"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// PositionRepo implements ports.PositionRepository with pgx.
type PositionRepo struct {
	db *DB
}

// NewPositionRepo creates a new PositionRepo.
func NewPositionRepo(db *DB) *PositionRepo {
	return &PositionRepo{db: db}
}

// Insert stores one position sample.
func (r *PositionRepo) Insert(ctx context.Context, ps *domain.PositionSample) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO position_samples (session_id, location, accuracy_m, speed, heading, recorded_at)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4, $5, $6, $7)
	`, ps.SessionID, ps.Location.Lon, ps.Location.Lat,
		ps.AccuracyMeters, ps.Speed, ps.Heading, ps.Time)
	return err
}

// LatestBySession returns a session's most recent samples, newest first.
func (r *PositionRepo) LatestBySession(ctx context.Context, sessionID string, limit int) ([]domain.PositionSample, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT session_id,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       accuracy_m, speed, heading, recorded_at
		FROM position_samples
		WHERE session_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.PositionSample
	for rows.Next() {
		var ps domain.PositionSample
		if err := rows.Scan(
			&ps.SessionID, &ps.Location.Lat, &ps.Location.Lon,
			&ps.AccuracyMeters, &ps.Speed, &ps.Heading, &ps.Time,
		); err != nil {
			return nil, err
		}
		samples = append(samples, ps)
	}
	return samples, rows.Err()
}
