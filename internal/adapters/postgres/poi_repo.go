package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aritzm/guidepost/internal/core/domain"
)

// POIRepo implements ports.POIRepository with pgx.
type POIRepo struct {
	db *DB
}

// NewPOIRepo creates a new POIRepo.
func NewPOIRepo(db *DB) *POIRepo {
	return &POIRepo{db: db}
}

// Upsert inserts or updates a single POI.
func (r *POIRepo) Upsert(ctx context.Context, p *domain.POI) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO pois (slug, name, description, category, location, address, wheelchair_accessible, metadata)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8, $9)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    category = EXCLUDED.category, location = EXCLUDED.location,
		    address = EXCLUDED.address,
		    wheelchair_accessible = EXCLUDED.wheelchair_accessible,
		    metadata = EXCLUDED.metadata
	`, p.Slug, p.Name, p.Description, p.Category, p.Location.Lon, p.Location.Lat,
		p.Address, p.WheelchairAccessible, p.Metadata)
	return err
}

// UpsertBatch inserts many POIs using pgx.Batch.
func (r *POIRepo) UpsertBatch(ctx context.Context, pois []domain.POI) error {
	batch := &pgx.Batch{}
	for _, p := range pois {
		batch.Queue(`
			INSERT INTO pois (slug, name, description, category, location, address, wheelchair_accessible, metadata)
			VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography, $7, $8, $9)
			ON CONFLICT (slug) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location
		`, p.Slug, p.Name, p.Description, p.Category, p.Location.Lon, p.Location.Lat,
			p.Address, p.WheelchairAccessible, p.Metadata)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range pois {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a POI by UUID.
func (r *POIRepo) GetByID(ctx context.Context, id string) (*domain.POI, error) {
	var p domain.POI
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at
		FROM pois WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category,
		&p.Location.Lat, &p.Location.Lon,
		&p.Address, &p.WheelchairAccessible, &p.Metadata, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetBySlug returns a POI by its stable content slug.
func (r *POIRepo) GetBySlug(ctx context.Context, slug string) (*domain.POI, error) {
	var p domain.POI
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at
		FROM pois WHERE slug = $1
	`, slug).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category,
		&p.Location.Lat, &p.Location.Lon,
		&p.Address, &p.WheelchairAccessible, &p.Metadata, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDs returns multiple POIs by UUID, in arbitrary order.
func (r *POIRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.POI, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at
		FROM pois WHERE id = ANY($1)
		ORDER BY name
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPOIs(rows)
}

// List returns POIs, optionally filtered by category.
func (r *POIRepo) List(ctx context.Context, category string) ([]domain.POI, error) {
	query := `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at
		FROM pois`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPOIs(rows)
}

// FindNearby returns POIs within radiusMeters using PostGIS ST_DWithin.
func (r *POIRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.POI, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance,
		       created_at
		FROM pois
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pois []domain.POI
	for rows.Next() {
		var p domain.POI
		var dist float64
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category,
			&p.Location.Lat, &p.Location.Lon,
			&p.Address, &p.WheelchairAccessible,
			&dist, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Distance = &dist
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

// Search performs fuzzy + full-text search on POI names.
func (r *POIRepo) Search(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), category,
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       COALESCE(address, ''), wheelchair_accessible, COALESCE(metadata, '{}'), created_at,
		       similarity(name, $1) as sim
		FROM pois
		WHERE name_vector @@ plainto_tsquery('simple', $1)
		   OR name %> $1
		ORDER BY sim DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pois []domain.POI
	for rows.Next() {
		var p domain.POI
		var sim float64
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category,
			&p.Location.Lat, &p.Location.Lon,
			&p.Address, &p.WheelchairAccessible, &p.Metadata, &p.CreatedAt,
			&sim,
		); err != nil {
			return nil, err
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

func scanPOIs(rows pgx.Rows) ([]domain.POI, error) {
	var pois []domain.POI
	for rows.Next() {
		var p domain.POI
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Category,
			&p.Location.Lat, &p.Location.Lon,
			&p.Address, &p.WheelchairAccessible, &p.Metadata, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}
