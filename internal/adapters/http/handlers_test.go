package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/aritzm/guidepost/internal/adapters/http"
	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/usecases"
)

// ---- Mock repositories ----

type mockPOIRepo struct {
	findNearbyFn func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.POI, error)
	getByIDFn    func(ctx context.Context, id string) (*domain.POI, error)
	getByIDsFn   func(ctx context.Context, ids []string) ([]domain.POI, error)
	listFn       func(ctx context.Context, category string) ([]domain.POI, error)
	searchFn     func(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error)
}

func (m *mockPOIRepo) Upsert(ctx context.Context, p *domain.POI) error       { return nil }
func (m *mockPOIRepo) UpsertBatch(ctx context.Context, p []domain.POI) error { return nil }
func (m *mockPOIRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.POI, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}
func (m *mockPOIRepo) GetByID(ctx context.Context, id string) (*domain.POI, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockPOIRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.POI, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}
func (m *mockPOIRepo) List(ctx context.Context, category string) ([]domain.POI, error) {
	if m.listFn != nil {
		return m.listFn(ctx, category)
	}
	return nil, nil
}
func (m *mockPOIRepo) Search(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, near, limit)
	}
	return nil, nil
}

type mockTrackRepo struct {
	getByIDFn   func(ctx context.Context, id string) (*domain.AudioTrack, error)
	listByPOIFn func(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error)
}

func (m *mockTrackRepo) Upsert(ctx context.Context, t *domain.AudioTrack) error       { return nil }
func (m *mockTrackRepo) UpsertBatch(ctx context.Context, t []domain.AudioTrack) error { return nil }
func (m *mockTrackRepo) GetByID(ctx context.Context, id string) (*domain.AudioTrack, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockTrackRepo) ListByPOI(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
	if m.listByPOIFn != nil {
		return m.listByPOIFn(ctx, poiID, language)
	}
	return nil, nil
}

type mockSessionRepo struct {
	sessions map[string]*domain.GuideSession
}

func newMockSessionRepo(sessions ...*domain.GuideSession) *mockSessionRepo {
	m := &mockSessionRepo{sessions: make(map[string]*domain.GuideSession)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.GuideSession) error {
	m.sessions[s.ID] = s
	return nil
}
func (m *mockSessionRepo) GetByID(ctx context.Context, id string) (*domain.GuideSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}
func (m *mockSessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.LastSeenAt = at
	}
	return nil
}
func (m *mockSessionRepo) SetPlaying(ctx context.Context, id string, playing bool) error {
	if s, ok := m.sessions[id]; ok {
		s.Playing = playing
	}
	return nil
}
func (m *mockSessionRepo) SetGPSDisabled(ctx context.Context, id string) error {
	if s, ok := m.sessions[id]; ok {
		s.GPSDisabled = true
	}
	return nil
}
func (m *mockSessionRepo) End(ctx context.Context, id string, at time.Time) error {
	if s, ok := m.sessions[id]; ok {
		s.EndedAt = &at
	}
	return nil
}

type mockPositionRepo struct {
	latestFn func(ctx context.Context, sessionID string, limit int) ([]domain.PositionSample, error)
}

func (m *mockPositionRepo) Insert(ctx context.Context, ps *domain.PositionSample) error { return nil }
func (m *mockPositionRepo) LatestBySession(ctx context.Context, sessionID string, limit int) ([]domain.PositionSample, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, sessionID, limit)
	}
	return nil, nil
}

type mockTriggerEventRepo struct {
	events []domain.TriggerEvent
}

func (m *mockTriggerEventRepo) Insert(ctx context.Context, ev *domain.TriggerEvent) error {
	m.events = append(m.events, *ev)
	return nil
}
func (m *mockTriggerEventRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.TriggerEvent, error) {
	var out []domain.TriggerEvent
	for _, ev := range m.events {
		if ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	return out, nil
}
func (m *mockTriggerEventRepo) FiredTrackIDs(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	for _, ev := range m.events {
		if ev.SessionID == sessionID {
			ids = append(ids, ev.TrackID)
		}
	}
	return ids, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
	d := &handler.Dependencies{
		POIs:   usecases.NewPOIService(&mockPOIRepo{}, nil),
		Guides: guides,
		Tours: usecases.NewGuideService(
			newMockSessionRepo(), &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// ---- POI handler tests ----

func TestListPOIs_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			listFn: func(ctx context.Context, category string) ([]domain.POI, error) {
				return []domain.POI{
					{ID: "p1", Slug: "guggenheim", Name: "Guggenheim Museum"},
					{ID: "p2", Slug: "casco-viejo", Name: "Casco Viejo"},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.POI `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 pois, got %d", len(result.Data))
	}
}

func TestListPOIs_Pagination(t *testing.T) {
	pois := make([]domain.POI, 5)
	for i := range pois {
		pois[i] = domain.POI{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("POI %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			listFn: func(ctx context.Context, category string) ([]domain.POI, error) { return pois, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois?offset=2&limit=2", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.POI `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 pois in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestNearbyPOIs_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.POI, error) {
				return []domain.POI{
					{ID: "p1", Name: "Guggenheim Museum", Location: domain.GeoPoint{Lat: 43.2687, Lon: -2.9340}},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/nearby?lat=43.268&lon=-2.934&radius=500", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var pois []domain.POI
	json.NewDecoder(resp.Body).Decode(&pois)
	if len(pois) != 1 {
		t.Errorf("expected 1 poi, got %d", len(pois))
	}
}

func TestNearbyPOIs_MissingParams(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/pois/nearby", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Status int    `json:"status"`
		Code   string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request error, got %s", apiErr.Code)
	}
}

func TestNearbyPOIs_BadRadius(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/pois/nearby?lat=43.26&lon=-2.93&radius=50000", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSearchPOIs_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			searchFn: func(ctx context.Context, query string, near *domain.GeoPoint, limit int) ([]domain.POI, error) {
				return []domain.POI{
					{ID: "p1", Name: "Guggenheim Museum Bilbao"},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/search?q=guggenheim", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestSearchPOIs_MissingQuery(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/pois/search", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetPOI_NotFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.POI, error) {
				return nil, fmt.Errorf("not found")
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/nonexistent-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetPOI_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.POI, error) {
				return &domain.POI{ID: id, Name: "Arriaga Theatre"}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/abc-123", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var poi domain.POI
	json.NewDecoder(resp.Body).Decode(&poi)
	if poi.Name != "Arriaga Theatre" {
		t.Errorf("expected Arriaga Theatre, got %s", poi.Name)
	}
}

// ---- Audio guide handler tests ----

func TestAudioGuide_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Guides = usecases.NewAudioGuideService(&mockTrackRepo{
			listByPOIFn: func(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
				return []domain.AudioTrack{
					{ID: "t1", Title: "Atrium", Language: language, Position: 1},
					{ID: "t2", Title: "Puppy", Language: language, Position: 2},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/poi-uuid/audio-guide?lang=es", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Language string             `json:"language"`
		Tracks   []domain.AudioTrack `json:"tracks"`
		Count    int                `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 2 {
		t.Errorf("expected 2 tracks, got %d", result.Count)
	}
	if result.Language != "es" {
		t.Errorf("expected language es, got %s", result.Language)
	}
}

func TestGetTrack_NotFound(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Guides = usecases.NewAudioGuideService(&mockTrackRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.AudioTrack, error) {
				return nil, fmt.Errorf("not found")
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/tracks/bad-id", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Session handler tests ----

func TestStartSession_ReturnsWatchOptions(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/sessions", strings.NewReader(`{"language":"eu"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Session      domain.GuideSession `json:"session"`
		WatchOptions domain.WatchOptions `json:"watch_options"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Session.ID == "" {
		t.Error("expected a session ID")
	}
	if result.Session.Language != "eu" {
		t.Errorf("expected language eu, got %s", result.Session.Language)
	}
	if !result.WatchOptions.EnableHighAccuracy {
		t.Error("expected enable_high_accuracy to be true")
	}
	if result.WatchOptions.MaximumAgeMs != 30000 {
		t.Errorf("expected maximum_age_ms 30000, got %d", result.WatchOptions.MaximumAgeMs)
	}
	if result.WatchOptions.TimeoutMs != 10000 {
		t.Errorf("expected timeout_ms 10000, got %d", result.WatchOptions.TimeoutMs)
	}
}

func TestGetSession_IncludesLastPosition(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now()})
	positions := &mockPositionRepo{
		latestFn: func(ctx context.Context, sessionID string, limit int) ([]domain.PositionSample, error) {
			return []domain.PositionSample{
				{SessionID: sessionID, Location: domain.GeoPoint{Lat: 43.2590, Lon: -2.9236}},
			}, nil
		},
	}
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, positions, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sessions/sess-1", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Session      domain.GuideSession    `json:"session"`
		LastPosition *domain.PositionSample `json:"last_position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Session.ID != "sess-1" {
		t.Errorf("expected session sess-1, got %s", result.Session.ID)
	}
	if result.LastPosition == nil {
		t.Fatal("expected last_position in the response")
	}
	if result.LastPosition.Location.Lat != 43.2590 {
		t.Errorf("unexpected last position: %+v", result.LastPosition.Location)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/sessions/nope", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReportPosition_FiresTrigger(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{
		ID: "sess-1", POIID: "poi-1", Language: "en", StartedAt: time.Now(),
	})
	tracks := &mockTrackRepo{
		listByPOIFn: func(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
			return []domain.AudioTrack{
				{
					ID: "t1", POIID: poiID, Title: "Atrium",
					Geofence: &domain.Geofence{
						Location:     domain.GeoPoint{Lat: 43.2687, Lon: -2.9340},
						RadiusMeters: 50,
						AutoTrigger:  true,
					},
				},
			}, nil
		},
	}
	guides := usecases.NewAudioGuideService(tracks, nil)
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Guides = guides
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	// ~33 m from the fence centre, inside the 50 m radius
	body := `{"lat":43.2690,"lon":-2.9340}`
	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/position", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Fired []domain.TriggerEvent `json:"fired"`
		Count int                   `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 1 {
		t.Fatalf("expected 1 fired trigger, got %d", result.Count)
	}
	if result.Fired[0].TrackID != "t1" {
		t.Errorf("expected track t1, got %s", result.Fired[0].TrackID)
	}
}

func TestReportPosition_InvalidCoordinates(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now()})
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/position", strings.NewReader(`{"lat":91.0,"lon":0.0}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestReportPosition_UnknownSession(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("POST", "/v1/sessions/nope/position", strings.NewReader(`{"lat":43.26,"lon":-2.93}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestReportPosition_EndedSession(t *testing.T) {
	endedAt := time.Now()
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now(), EndedAt: &endedAt})
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/position", strings.NewReader(`{"lat":43.26,"lon":-2.93}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 410 {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "session_ended" {
		t.Errorf("expected session_ended error, got %s", apiErr.Code)
	}
}

func TestReportPosition_TrackLoadFailure(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", POIID: "poi-1", StartedAt: time.Now()})
	tracks := &mockTrackRepo{
		listByPOIFn: func(ctx context.Context, poiID, language string) ([]domain.AudioTrack, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	guides := usecases.NewAudioGuideService(tracks, nil)
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Guides = guides
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/position", strings.NewReader(`{"lat":43.26,"lon":-2.93}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500 for a backend failure, got %d", resp.StatusCode)
	}
}

func TestPlayerState_Updates(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now()})
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/player", strings.NewReader(`{"playing":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !sessions.sessions["sess-1"].Playing {
		t.Error("expected session to be marked playing")
	}
}

func TestGPSError_DisablesTriggering(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now()})
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("POST", "/v1/sessions/sess-1/gps-error", strings.NewReader(`{"reason":"permission denied"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if !sessions.sessions["sess-1"].GPSDisabled {
		t.Error("expected session to be GPS-disabled")
	}
}

func TestSessionTriggers_Empty(t *testing.T) {
	sessions := newMockSessionRepo(&domain.GuideSession{ID: "sess-1", StartedAt: time.Now()})
	deps := makeDeps(func(d *handler.Dependencies) {
		guides := usecases.NewAudioGuideService(&mockTrackRepo{}, nil)
		d.Tours = usecases.NewGuideService(
			sessions, &mockPositionRepo{}, &mockTriggerEventRepo{},
			guides, nil, nil, nil,
		)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/sessions/sess-1/triggers", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Triggers []domain.TriggerEvent `json:"triggers"`
		Count    int                   `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Count != 0 {
		t.Errorf("expected 0 triggers, got %d", result.Count)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	deps := makeDeps()
	// DB, NATS, Cache are nil → should report not ready
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, _ := app.Test(req, -1)
	// With nil DB, ready should return 503
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Cache-Control header ----

func TestNearbyPOIs_CacheControlHeader(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.POI, error) {
				return []domain.POI{}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois/nearby?lat=43.26&lon=-2.93", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cc := resp.Header.Get("Cache-Control")
	if cc != "public, max-age=300" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}
}

// ---- X-API-Version header ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	v := resp.Header.Get("X-API-Version")
	if v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

// ---- Link header on pagination ----

func TestListPOIs_LinkHeader(t *testing.T) {
	pois := make([]domain.POI, 10)
	for i := range pois {
		pois[i] = domain.POI{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("POI %d", i)}
	}

	deps := makeDeps(func(d *handler.Dependencies) {
		d.POIs = usecases.NewPOIService(&mockPOIRepo{
			listFn: func(ctx context.Context, category string) ([]domain.POI, error) { return pois, nil },
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/pois?offset=0&limit=3", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	// Register middleware
	app.Use(handler.AccessLogMiddleware())

	// Simple test route
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	// Make request
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	// Verify response body
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
