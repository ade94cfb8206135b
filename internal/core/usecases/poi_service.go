package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
)

// POIService handles point-of-interest business logic.
type POIService struct {
	pois  ports.POIRepository
	cache ports.CacheService
}

// NewPOIService creates a new POIService.
func NewPOIService(pois ports.POIRepository, cache ports.CacheService) *POIService {
	return &POIService{pois: pois, cache: cache}
}

// FindNearby returns POIs within radiusMeters of the given point.
func (s *POIService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.POI, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	// Try cache
	cacheKey := fmt.Sprintf("pois:nearby:%.4f:%.4f:%.0f:%d", lat, lon, radiusMeters, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var pois []domain.POI
			if err := json.Unmarshal(data, &pois); err == nil {
				return pois, nil
			}
		}
	}

	pois, err := s.pois.FindNearby(ctx, lat, lon, radiusMeters, limit)
	if err != nil {
		return nil, err
	}

	// Cache for 5 minutes (the catalog changes rarely)
	if s.cache != nil {
		if data, err := json.Marshal(pois); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return pois, nil
}

// Search performs fuzzy + full-text search on POI names.
func (s *POIService) Search(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("pois:search:%s:%d", query, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var pois []domain.POI
			if err := json.Unmarshal(data, &pois); err == nil {
				return pois, nil
			}
		}
	}

	pois, err := s.pois.Search(ctx, query, near, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(pois); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return pois, nil
}

// GetByID returns a single POI.
func (s *POIService) GetByID(ctx context.Context, id string) (*domain.POI, error) {
	cacheKey := "pois:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var poi domain.POI
			if err := json.Unmarshal(data, &poi); err == nil {
				return &poi, nil
			}
		}
	}

	poi, err := s.pois.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(poi); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min for a single POI
		}
	}

	return poi, nil
}

// GetByIDs returns multiple POIs by their IDs.
func (s *POIService) GetByIDs(ctx context.Context, ids []string) ([]domain.POI, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.pois.GetByIDs(ctx, ids)
}

// List returns POIs, optionally filtered by category.
func (s *POIService) List(ctx context.Context, category string) ([]domain.POI, error) {
	return s.pois.List(ctx, category)
}
