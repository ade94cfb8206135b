package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
)

// AudioGuideService serves the audio-track catalog for POIs.
type AudioGuideService struct {
	tracks ports.AudioTrackRepository
	cache  ports.CacheService
}

// NewAudioGuideService creates a new AudioGuideService.
func NewAudioGuideService(tracks ports.AudioTrackRepository, cache ports.CacheService) *AudioGuideService {
	return &AudioGuideService{tracks: tracks, cache: cache}
}

// ListTracks returns the audio guide for a POI in the requested language,
// ordered by track position. Falls back to all languages when language is empty.
func (s *AudioGuideService) ListTracks(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
	if poiID == "" {
		return nil, fmt.Errorf("poi id must not be empty")
	}

	cacheKey := fmt.Sprintf("guide:%s:%s", poiID, language)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var tracks []domain.AudioTrack
			if err := json.Unmarshal(data, &tracks); err == nil {
				return tracks, nil
			}
		}
	}

	tracks, err := s.tracks.ListByPOI(ctx, poiID, language)
	if err != nil {
		return nil, err
	}

	// 10 minutes; the guide content is immutable for a visitor's session
	if s.cache != nil {
		if data, err := json.Marshal(tracks); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return tracks, nil
}

// GetTrack returns a single audio track.
func (s *AudioGuideService) GetTrack(ctx context.Context, id string) (*domain.AudioTrack, error) {
	return s.tracks.GetByID(ctx, id)
}
