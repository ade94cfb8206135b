package trigger

// State is the set of track IDs already fired during a guide session.
// An ID, once present, is never removed; the whole State is discarded
// with the session. Not safe for concurrent use; the owning service
// serializes sample processing per session.
type State struct {
	fired map[string]struct{}
}

// NewState returns an empty fired set.
func NewState() *State {
	return &State{fired: make(map[string]struct{})}
}

// NewStateFrom seeds a fired set, e.g. from the cache after a restart.
func NewStateFrom(ids []string) *State {
	s := NewState()
	for _, id := range ids {
		s.fired[id] = struct{}{}
	}
	return s
}

// Fired reports whether the track has already been triggered.
func (s *State) Fired(trackID string) bool {
	_, ok := s.fired[trackID]
	return ok
}

// MarkFired adds a track to the set. Returns false if it was already
// present (adding an existing ID is a no-op).
func (s *State) MarkFired(trackID string) bool {
	if _, ok := s.fired[trackID]; ok {
		return false
	}
	s.fired[trackID] = struct{}{}
	return true
}

// Len returns the number of fired tracks.
func (s *State) Len() int {
	return len(s.fired)
}
