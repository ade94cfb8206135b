package http

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/pkg/metrics"
)

// ContentStats holds row counts for the ingested guide content.
type ContentStats struct {
	POIs        int    `json:"pois"`
	AudioTracks int    `json:"audio_tracks"`
	Sessions    int    `json:"sessions"`
	Triggers    int    `json:"triggers"`
	LastIngest  string `json:"last_ingest,omitempty"`
}

// ContentStatsHandler returns row counts from the guide tables.
func ContentStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.DB == nil {
			return errInternal(c, "database not available")
		}

		var stats ContentStats
		row := deps.DB.Pool.QueryRow(c.Context(), `
			SELECT
				(SELECT count(*) FROM pois),
				(SELECT count(*) FROM audio_tracks),
				(SELECT count(*) FROM guide_sessions),
				(SELECT count(*) FROM trigger_events),
				COALESCE((SELECT max(created_at)::text FROM pois), '')
		`)
		if err := row.Scan(&stats.POIs, &stats.AudioTracks, &stats.Sessions,
			&stats.Triggers, &stats.LastIngest); err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(stats)
	}
}

// ListPOIsHandler returns all POIs, optionally filtered by category.
func ListPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pois, err := deps.POIs.List(c.Context(), c.Query("category"))
		if err != nil {
			return errInternal(c, err.Error())
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		page, pg := paginate(pois, offset, limit, 200, 100)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// NearbyPOIsHandler returns POIs within a radius of a point.
func NearbyPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 0)
		lon := c.QueryFloat("lon", 0)
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		if lat == 0 || lon == 0 {
			return errBadRequest(c, "lat and lon are required")
		}
		if radius <= 0 || radius > 10000 {
			return errBadRequest(c, "radius must be between 1 and 10000 meters")
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		pois, err := deps.POIs.FindNearby(c.Context(), lat, lon, radius, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(pois)
	}
}

// SearchPOIsHandler performs fuzzy search on POI names.
func SearchPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		pois, err := deps.POIs.Search(c.Context(), query, nil, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(pois)
	}
}

// BatchPOIsHandler returns multiple POIs by ID.
func BatchPOIsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ids := c.Query("ids", "")
		if ids == "" {
			return errBadRequest(c, "ids query parameter is required (comma-separated)")
		}

		var poiIDs []string
		for _, id := range strings.Split(ids, ",") {
			if trimmed := strings.TrimSpace(id); trimmed != "" {
				poiIDs = append(poiIDs, trimmed)
			}
		}

		if len(poiIDs) == 0 {
			return errBadRequest(c, "at least one POI ID is required")
		}
		if len(poiIDs) > 100 {
			return errBadRequest(c, "maximum 100 POI IDs allowed")
		}

		pois, err := deps.POIs.GetByIDs(c.Context(), poiIDs)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(pois)
	}
}

// GetPOIHandler returns a single POI by ID.
func GetPOIHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "poi id is required")
		}
		poi, err := deps.POIs.GetByID(c.Context(), id)
		if err != nil {
			return errNotFound(c, "poi not found")
		}
		return c.JSON(poi)
	}
}

// AudioGuideHandler returns a POI's audio-guide playlist for a language.
func AudioGuideHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "poi id is required")
		}
		language := c.Query("language", c.Query("lang", "en"))

		tracks, err := deps.Guides.ListTracks(c.Context(), id, language)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(fiber.Map{
			"poi_id":   id,
			"language": language,
			"tracks":   tracks,
			"count":    len(tracks),
		})
	}
}

// GetTrackHandler returns a single audio track by ID.
func GetTrackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "track id is required")
		}
		track, err := deps.Guides.GetTrack(c.Context(), id)
		if err != nil {
			return errNotFound(c, "track not found")
		}
		return c.JSON(track)
	}
}

// StartSessionHandler creates a new guide session and returns the
// recommended geolocation watch parameters alongside it.
func StartSessionHandler(deps *Dependencies) fiber.Handler {
	type startRequest struct {
		POIID    string `json:"poi_id"`
		Language string `json:"language"`
	}

	return func(c *fiber.Ctx) error {
		var req startRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		sess, err := deps.Tours.StartSession(c.Context(), req.POIID, req.Language)
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.Status(201).JSON(fiber.Map{
			"session":       sess,
			"watch_options": domain.DefaultWatchOptions(),
		})
	}
}

// GetSessionHandler returns a session's current state together with
// the last position the client reported, when one exists.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		sess, err := deps.Tours.GetSession(c.Context(), id)
		if err != nil {
			return errNotFound(c, "session not found")
		}

		resp := fiber.Map{"session": sess}
		if last, err := deps.Tours.LastPosition(c.Context(), id); err == nil && last != nil {
			resp["last_position"] = last
		}
		return c.JSON(resp)
	}
}

// EndSessionHandler closes a session and tears down its trigger state.
func EndSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Tours.EndSession(c.Context(), id); err != nil {
			return errNotFound(c, "session not found")
		}
		return c.SendStatus(204)
	}
}

// ReportPositionHandler evaluates one position sample against the
// session's geofences and returns any newly fired triggers.
func ReportPositionHandler(deps *Dependencies) fiber.Handler {
	type positionRequest struct {
		Lat            float64 `json:"lat"`
		Lon            float64 `json:"lon"`
		AccuracyMeters float64 `json:"accuracy_meters"`
		Speed          float64 `json:"speed"`
		Heading        float64 `json:"heading"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ps := &domain.PositionSample{
			SessionID:      id,
			Location:       domain.GeoPoint{Lat: req.Lat, Lon: req.Lon},
			AccuracyMeters: req.AccuracyMeters,
			Speed:          req.Speed,
			Heading:        req.Heading,
			Time:           time.Now().UTC(),
		}

		start := time.Now()
		fired, err := deps.Tours.ProcessPositionSample(c.Context(), ps)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidCoordinates):
			return errBadRequest(c, err.Error())
		case errors.Is(err, domain.ErrSessionNotFound):
			return errNotFound(c, err.Error())
		case errors.Is(err, domain.ErrSessionEnded):
			return errGone(c, err.Error())
		default:
			return errInternal(c, err.Error())
		}

		metrics.PositionsProcessed.WithLabelValues("http").Inc()
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		for _, ev := range fired {
			metrics.TriggersFired.WithLabelValues(strconv.FormatBool(ev.AutoPlayed)).Inc()
		}
		if len(fired) > 0 {
			LoggerFromCtx(c.UserContext()).Info("triggers fired",
				"session_id", ps.SessionID, "count", len(fired))
		}

		if fired == nil {
			fired = []domain.TriggerEvent{}
		}
		return c.JSON(fiber.Map{
			"fired": fired,
			"count": len(fired),
		})
	}
}

// PlayerStateHandler records whether the client's audio player is active.
// Autoplay is suppressed while something is already playing.
func PlayerStateHandler(deps *Dependencies) fiber.Handler {
	type playerRequest struct {
		Playing bool `json:"playing"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var req playerRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Tours.SetPlayerState(c.Context(), id, req.Playing); err != nil {
			return errNotFound(c, "session not found")
		}
		return c.JSON(fiber.Map{"playing": req.Playing})
	}
}

// GPSErrorHandler records a client-side geolocation failure. The session
// stays usable for manual playback but proximity triggering stops.
func GPSErrorHandler(deps *Dependencies) fiber.Handler {
	type gpsErrorRequest struct {
		Reason string `json:"reason"`
	}

	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var req gpsErrorRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}

		if err := deps.Tours.ReportGPSError(c.Context(), id, req.Reason); err != nil {
			return errNotFound(c, "session not found")
		}

		metrics.GPSErrorsReported.Inc()
		return c.SendStatus(204)
	}
}

// SessionTriggersHandler returns the triggers fired so far in a session.
func SessionTriggersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		events, err := deps.Tours.ListTriggers(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if events == nil {
			events = []domain.TriggerEvent{}
		}
		return c.JSON(fiber.Map{
			"triggers": events,
			"count":    len(events),
		})
	}
}
