package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is finite and within WGS 84 bounds.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Geofence is a circular region around a point that activates audio content.
type Geofence struct {
	Location     GeoPoint `json:"location"`
	RadiusMeters float64  `json:"radius_meters"`
	AutoTrigger  bool     `json:"auto_trigger"`
}

// Valid reports whether the geofence can ever match a position.
// Tracks with a malformed geofence are simply never triggered.
func (g *Geofence) Valid() bool {
	return g != nil && g.RadiusMeters > 0 && g.Location.Valid()
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}
