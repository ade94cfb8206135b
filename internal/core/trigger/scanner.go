// Package trigger implements the geofence evaluation core of the audio
// guide: a pure scanner that finds tracks newly in range of a position,
// and a dispatcher that marks them fired (at most once per session) and
// describes the side effects to perform.
package trigger

import (
	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/pkg/geospatial"
)

// Match pairs a track that entered range with its measured distance.
type Match struct {
	Track          domain.AudioTrack
	DistanceMeters float64
}

// Scan returns the tracks whose geofence now contains pos and which have
// not fired yet in this session. The result preserves input order.
// Deterministic and side-effect-free; callers validate pos before calling.
// Tracks with a missing or malformed geofence never match.
func Scan(pos domain.GeoPoint, tracks []domain.AudioTrack, fired *State) []Match {
	var matches []Match
	for _, t := range tracks {
		if !t.Geofence.Valid() || !t.Geofence.AutoTrigger {
			continue
		}
		if fired != nil && fired.Fired(t.ID) {
			continue
		}
		d := geospatial.Haversine(pos.Lat, pos.Lon, t.Geofence.Location.Lat, t.Geofence.Location.Lon)
		if d <= t.Geofence.RadiusMeters {
			matches = append(matches, Match{Track: t, DistanceMeters: d})
		}
	}
	return matches
}
