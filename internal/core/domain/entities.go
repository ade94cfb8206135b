package domain

import (
	"time"
)

// POI represents a point of interest (museum, landmark, viewpoint).
type POI struct {
	ID                   string         `json:"id"`
	Slug                 string         `json:"slug"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	Category             string         `json:"category"`
	Location             GeoPoint       `json:"location"`
	Address              string         `json:"address,omitempty"`
	WheelchairAccessible bool           `json:"wheelchair_accessible"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Distance             *float64       `json:"distance,omitempty"` // computed field
	CreatedAt            time.Time      `json:"created_at"`
}

// AudioTrack is one narration segment of a POI's audio guide.
// Tracks with a geofence can auto-play when the visitor walks into range.
type AudioTrack struct {
	ID              string    `json:"id"`
	TrackID         string    `json:"track_id"`
	POIID           string    `json:"poi_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Language        string    `json:"language"`
	AudioURL        string    `json:"audio_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Position        int       `json:"position"`
	Geofence        *Geofence `json:"gps_location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// GuideSession is one visitor's audio-guide run. The fired-track set lives
// for exactly as long as the session; a new session starts clean.
type GuideSession struct {
	ID          string     `json:"id"`
	POIID       string     `json:"poi_id,omitempty"`
	Language    string     `json:"language"`
	Playing     bool       `json:"playing"`
	GPSDisabled bool       `json:"gps_disabled"`
	StartedAt   time.Time  `json:"started_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// PositionSample is a single GPS reading reported by a client.
type PositionSample struct {
	SessionID      string         `json:"session_id"`
	Location       GeoPoint       `json:"location"`
	AccuracyMeters float64        `json:"accuracy_meters,omitempty"`
	Speed          float64        `json:"speed,omitempty"` // m/s
	Heading        float64        `json:"heading,omitempty"`
	Time           time.Time      `json:"time"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TriggerEvent records the one-time activation of a geofenced track
// within a session.
type TriggerEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	TrackID        string    `json:"track_id"`
	POIID          string    `json:"poi_id,omitempty"`
	TrackTitle     string    `json:"track_title"`
	Location       GeoPoint  `json:"location"`
	DistanceMeters float64   `json:"distance_meters"`
	AutoPlayed     bool      `json:"auto_played"`
	Time           time.Time `json:"time"`
}

// WatchOptions are the recommended geolocation watch parameters returned
// to clients when a session is created.
type WatchOptions struct {
	EnableHighAccuracy bool `json:"enable_high_accuracy"`
	MaximumAgeMs       int  `json:"maximum_age_ms"`
	TimeoutMs          int  `json:"timeout_ms"`
}

// DefaultWatchOptions match what the mobile clients ship with.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		EnableHighAccuracy: true,
		MaximumAgeMs:       30000,
		TimeoutMs:          10000,
	}
}
