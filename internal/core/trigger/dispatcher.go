package trigger

import "github.com/aritzm/guidepost/internal/core/domain"

// EffectKind distinguishes the side effects a dispatch can request.
type EffectKind string

const (
	// EffectNotify asks for a client notification about the track.
	EffectNotify EffectKind = "notify"
	// EffectPlay asks the client to begin playback of the track.
	EffectPlay EffectKind = "play"
)

// Effect describes one side effect to perform for a fired track.
// Effects are descriptions only; the caller performs them.
type Effect struct {
	Kind           EffectKind
	Track          domain.AudioTrack
	DistanceMeters float64
}

// Dispatch marks each newly matched track as fired and returns the effects
// to perform: one notification per track, plus a begin-playback effect for
// the first track when nothing is currently playing. Marking an already
// fired track is a no-op and yields no effects, so dispatch is idempotent.
func Dispatch(newly []Match, st *State, playing bool) []Effect {
	var effects []Effect
	for _, m := range newly {
		if !st.MarkFired(m.Track.ID) {
			continue
		}
		effects = append(effects, Effect{Kind: EffectNotify, Track: m.Track, DistanceMeters: m.DistanceMeters})
		if !playing {
			effects = append(effects, Effect{Kind: EffectPlay, Track: m.Track, DistanceMeters: m.DistanceMeters})
			playing = true
		}
	}
	return effects
}
