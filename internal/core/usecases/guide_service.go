package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/core/trigger"
)

// GuideService owns guide sessions and runs the proximity-trigger pipeline:
// each reported position sample is scanned against the session's geofenced
// tracks, newly entered fences are dispatched at most once, and the resulting
// trigger events are persisted, published, and pushed.
type GuideService struct {
	sessions  ports.SessionRepository
	positions ports.PositionRepository
	events    ports.TriggerEventRepository
	guide     *AudioGuideService
	publisher ports.EventPublisher
	cache     ports.CacheService
	notifier  ports.NotificationService

	mu     sync.Mutex
	active map[string]*sessionState
}

// sessionState is the in-process view of one session's trigger pipeline.
// Its mutex serializes sample processing: one sample runs scan → dispatch →
// state mutation to completion before the next is admitted.
type sessionState struct {
	mu      sync.Mutex
	fired   *trigger.State
	playing bool
}

// firedSetTTLSeconds bounds how long the cross-process fired set outlives
// an idle session.
const firedSetTTLSeconds = 24 * 60 * 60

// NewGuideService creates a new GuideService.
func NewGuideService(
	sessions ports.SessionRepository,
	positions ports.PositionRepository,
	events ports.TriggerEventRepository,
	guide *AudioGuideService,
	publisher ports.EventPublisher,
	cache ports.CacheService,
	notifier ports.NotificationService,
) *GuideService {
	return &GuideService{
		sessions:  sessions,
		positions: positions,
		events:    events,
		guide:     guide,
		publisher: publisher,
		cache:     cache,
		notifier:  notifier,
		active:    make(map[string]*sessionState),
	}
}

// StartSession creates a guide session for a POI in the given language.
func (s *GuideService) StartSession(ctx context.Context, poiID, language string) (*domain.GuideSession, error) {
	if language == "" {
		language = "en"
	}

	now := time.Now()
	sess := &domain.GuideSession{
		ID:         uuid.NewString(),
		POIID:      poiID,
		Language:   language,
		StartedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession returns a session by ID.
func (s *GuideService) GetSession(ctx context.Context, id string) (*domain.GuideSession, error) {
	return s.sessions.GetByID(ctx, id)
}

// EndSession closes a session and drops its trigger state.
func (s *GuideService) EndSession(ctx context.Context, id string) error {
	if err := s.sessions.End(ctx, id, time.Now()); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, firedSetKey(id))
	}
	return nil
}

// SetPlayerState records whether the client is currently playing audio.
// Dispatch only emits a begin-playback effect while the session is idle.
func (s *GuideService) SetPlayerState(ctx context.Context, sessionID string, playing bool) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.playing = playing
	st.mu.Unlock()

	return s.sessions.SetPlaying(ctx, sessionID, playing)
}

// ReportGPSError marks a session's GPS triggering as disabled for the rest
// of the session. Logged once as a warning; no retries are attempted.
func (s *GuideService) ReportGPSError(ctx context.Context, sessionID, reason string) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.GPSDisabled {
		return nil // already reported
	}

	slog.Warn("gps unavailable, trigger scanning disabled for session",
		"session_id", sessionID, "reason", reason)
	return s.sessions.SetGPSDisabled(ctx, sessionID)
}

// LastPosition returns the most recent position recorded for a
// session, or nil when none was reported yet.
func (s *GuideService) LastPosition(ctx context.Context, sessionID string) (*domain.PositionSample, error) {
	samples, err := s.positions.LatestBySession(ctx, sessionID, 1)
	if err != nil || len(samples) == 0 {
		return nil, err
	}
	return &samples[0], nil
}

// ListTriggers returns the fired-trigger history of a session.
func (s *GuideService) ListTriggers(ctx context.Context, sessionID string) ([]domain.TriggerEvent, error) {
	return s.events.ListBySession(ctx, sessionID)
}

// ProcessPositionSample runs the trigger pipeline for one sample and returns
// the events fired by it. Samples for GPS-disabled sessions are dropped.
func (s *GuideService) ProcessPositionSample(ctx context.Context, ps *domain.PositionSample) ([]domain.TriggerEvent, error) {
	if !ps.Location.Valid() {
		return nil, fmt.Errorf("%w: %.6f, %.6f", domain.ErrInvalidCoordinates, ps.Location.Lat, ps.Location.Lon)
	}
	if ps.Time.IsZero() {
		ps.Time = time.Now()
	}

	sess, err := s.sessions.GetByID(ctx, ps.SessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", ps.SessionID, err)
	}
	if sess.EndedAt != nil {
		return nil, fmt.Errorf("session %s: %w", ps.SessionID, domain.ErrSessionEnded)
	}
	if sess.GPSDisabled {
		return nil, nil
	}

	// Analytics trail; the trigger pipeline does not depend on it.
	if err := s.positions.Insert(ctx, ps); err != nil {
		slog.Warn("persist position sample", "session_id", ps.SessionID, "error", err)
	}
	_ = s.sessions.Touch(ctx, ps.SessionID, ps.Time)

	tracks, err := s.guide.ListTracks(ctx, sess.POIID, sess.Language)
	if err != nil {
		return nil, fmt.Errorf("load guide tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	st, err := s.state(ctx, ps.SessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	matches := trigger.Scan(ps.Location, tracks, st.fired)
	effects := trigger.Dispatch(matches, st.fired, st.playing)

	var fired []domain.TriggerEvent
	for _, eff := range effects {
		switch eff.Kind {
		case trigger.EffectNotify:
			ev, ok := s.fireTrack(ctx, sess, ps, eff)
			if ok {
				fired = append(fired, *ev)
			}
		case trigger.EffectPlay:
			st.playing = true
			_ = s.sessions.SetPlaying(ctx, ps.SessionID, true)
			if len(fired) > 0 {
				fired[len(fired)-1].AutoPlayed = true
			}
		}
	}

	return fired, nil
}

// fireTrack performs the side effects of one notify effect. The Valkey set
// is the cross-process at-most-once guard: when another worker already
// claimed the track, the effect is dropped here.
func (s *GuideService) fireTrack(ctx context.Context, sess *domain.GuideSession, ps *domain.PositionSample, eff trigger.Effect) (*domain.TriggerEvent, bool) {
	if s.cache != nil {
		added, err := s.cache.AddToSet(ctx, firedSetKey(sess.ID), eff.Track.ID, firedSetTTLSeconds)
		if err != nil {
			slog.Warn("fired-set update", "session_id", sess.ID, "error", err)
		} else if !added {
			return nil, false
		}
	}

	ev := &domain.TriggerEvent{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		TrackID:        eff.Track.ID,
		POIID:          eff.Track.POIID,
		TrackTitle:     eff.Track.Title,
		Location:       ps.Location,
		DistanceMeters: eff.DistanceMeters,
		Time:           ps.Time,
	}

	if err := s.events.Insert(ctx, ev); err != nil {
		slog.Warn("persist trigger event", "track_id", ev.TrackID, "error", err)
	}
	if s.publisher != nil {
		_ = s.publisher.PublishTriggerEvent(ctx, ev)
	}
	if s.notifier != nil && s.claimDelivery(ctx, sess.ID, eff.Track.ID) {
		body := eff.Track.Description
		if body == "" {
			body = "You are near " + eff.Track.Title
		}
		_ = s.notifier.SendPush(ctx, sess.ID, eff.Track.Title, body)
	}

	return ev, true
}

// claimDelivery takes the push-delivery slot for a session+track pair.
// The notification workflow claims the same slot off the published
// trigger event, so whichever path wins delivers the single push.
func (s *GuideService) claimDelivery(ctx context.Context, sessionID, trackID string) bool {
	if s.cache == nil {
		return true
	}
	added, err := s.cache.AddToSet(ctx, domain.DeliveryClaimKey(sessionID), trackID, domain.DeliveryClaimTTLSeconds)
	if err != nil {
		// Leave delivery to the workflow path rather than risk a double push.
		slog.Warn("delivery claim", "session_id", sessionID, "error", err)
		return false
	}
	return added
}

// state returns the in-process trigger state for a session, seeding the
// fired set from the cache or, failing that, from the event log so a
// restarted worker never re-fires a track mid-session.
func (s *GuideService) state(ctx context.Context, sessionID string) (*sessionState, error) {
	s.mu.Lock()
	if st, ok := s.active[sessionID]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	var ids []string
	if s.cache != nil {
		if members, err := s.cache.SetMembers(ctx, firedSetKey(sessionID)); err == nil && len(members) > 0 {
			ids = members
		}
	}
	if ids == nil {
		stored, err := s.events.FiredTrackIDs(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load fired tracks: %w", err)
		}
		ids = stored
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.active[sessionID]; ok {
		return st, nil
	}
	st := &sessionState{fired: trigger.NewStateFrom(ids), playing: sess.Playing}
	s.active[sessionID] = st
	return st, nil
}

func firedSetKey(sessionID string) string {
	return "session:" + sessionID + ":fired"
}
