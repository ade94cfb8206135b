package domain

import "errors"

// ErrSessionEnded is returned when a position sample or playback
// request targets a session that was already closed.
var ErrSessionEnded = errors.New("session already ended")

// ErrSessionNotFound is returned by session lookups for unknown IDs.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidCoordinates is returned for non-finite or out-of-range
// latitude/longitude values.
var ErrInvalidCoordinates = errors.New("invalid coordinates")
