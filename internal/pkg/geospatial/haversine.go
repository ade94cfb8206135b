// Package geospatial holds the distance math the trigger scanner runs
// on every position sample. Postgres does coarse candidate selection
// with PostGIS; the exact fence test happens here so it behaves the
// same in process and in tests.
package geospatial

import "math"

// Mean Earth radius in meters (IUGG).
const earthRadiusM = 6371000.0

// metersPerDegreeLat is close enough for bounding-box prefilters.
const metersPerDegreeLat = 111320.0

// Haversine returns the great-circle distance in meters between two
// WGS84 points. NaN or infinite inputs propagate per IEEE-754;
// callers validate coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin(toRad(lat2-lat1) / 2)
	sinLon := math.Sin(toRad(lon2-lon1) / 2)

	a := sinLat*sinLat + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*sinLon*sinLon
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns a degree-space box covering a circle of
// radiusMeters around the point. It over-covers near the poles, which
// is fine for a prefilter; the exact Haversine check runs afterwards.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegreeLat
	lonDelta := radiusMeters / (metersPerDegreeLat * math.Cos(toRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
