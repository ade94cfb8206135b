package http

import (
	"testing"

	"github.com/aritzm/guidepost/internal/core/domain"
)

func TestWSPositionSample_Valid(t *testing.T) {
	ps, err := wsPositionSample(wsMessage{
		Action:         "position",
		Session:        "sess-1",
		Lat:            43.2690,
		Lon:            -2.9340,
		AccuracyMeters: 12,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ps.SessionID != "sess-1" {
		t.Errorf("expected session sess-1, got %s", ps.SessionID)
	}
	if ps.Location.Lat != 43.2690 || ps.Location.Lon != -2.9340 {
		t.Errorf("unexpected location: %+v", ps.Location)
	}
	if ps.Time.IsZero() {
		t.Error("expected a sample timestamp")
	}
}

func TestWSPositionSample_RequiresSession(t *testing.T) {
	_, err := wsPositionSample(wsMessage{Action: "position", Lat: 43.2, Lon: -2.9})
	if err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestWSPositionSample_RejectsInvalidCoordinates(t *testing.T) {
	_, err := wsPositionSample(wsMessage{Action: "position", Session: "sess-1", Lat: 91, Lon: 0})
	if err != domain.ErrInvalidCoordinates {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}
