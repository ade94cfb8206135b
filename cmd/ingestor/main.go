package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/aritzm/guidepost/internal/adapters/nats"
	"github.com/aritzm/guidepost/internal/adapters/postgres"
	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source  string        `json:"source"`
	Bundles []BundleEntry `json:"bundles"`
}

// BundleEntry points at one content bundle, either a remote URL or a local
// file. A bundle holds the POIs and audio tracks for one city or tour.
type BundleEntry struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`
}

// Bundle is the payload format produced by the content pipeline.
type Bundle struct {
	POIs []POIEntry `json:"pois"`
}

type POIEntry struct {
	Slug                 string         `json:"slug"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	Category             string         `json:"category"`
	Lat                  float64        `json:"lat"`
	Lon                  float64        `json:"lon"`
	Address              string         `json:"address,omitempty"`
	WheelchairAccessible bool           `json:"wheelchair_accessible,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	Tracks               []TrackEntry   `json:"tracks"`
}

type TrackEntry struct {
	TrackID         string   `json:"track_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Language        string   `json:"language"`
	AudioURL        string   `json:"audio_url"`
	DurationSeconds int      `json:"duration_seconds"`
	Position        int      `json:"position"`
	GeofenceLat     *float64 `json:"geofence_lat,omitempty"`
	GeofenceLon     *float64 `json:"geofence_lon,omitempty"`
	GeofenceRadiusM *float64 `json:"geofence_radius_m,omitempty"`
	AutoTrigger     bool     `json:"auto_trigger,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("guidepost-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pois := postgres.NewPOIRepo(db)
	tracks := postgres.NewTrackRepo(db)

	// Content-refresh broadcasts are best effort; the ingest itself
	// only needs the database.
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		log.Printf("nats unavailable, refresh broadcast disabled: %v", err)
	} else {
		events = pub
		defer pub.Close()
	}

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("GuidePost Content Ingestor: %d bundles from %s", len(manifest.Bundles), manifest.Source)

	// Filter bundles (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent downloads

	for _, bundle := range manifest.Bundles {
		if len(slugFilter) > 0 && !slugFilter[bundle.Slug] {
			continue
		}

		wg.Add(1)
		go func(b BundleEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestBundle(ctx, pois, tracks, client, b); err != nil {
				log.Printf("ERROR [%s]: %v", b.Slug, err)
			}
		}(bundle)
	}

	wg.Wait()
	log.Println("ingestion complete")

	if events != nil {
		note, _ := json.Marshal(map[string]any{
			"type":    "content_updated",
			"source":  manifest.Source,
			"bundles": len(manifest.Bundles),
		})
		if err := events.PublishBroadcast(ctx, note); err != nil {
			log.Printf("refresh broadcast failed: %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Per-bundle ingestion
// ---------------------------------------------------------------------------

func ingestBundle(ctx context.Context, pois *postgres.POIRepo, tracks *postgres.TrackRepo, client *http.Client, entry BundleEntry) error {
	body, err := fetchBundle(client, entry)
	if err != nil {
		return err
	}

	var bundle Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return fmt.Errorf("parse bundle: %w", err)
	}

	poiBatch := make([]domain.POI, 0, len(bundle.POIs))
	var trackBatch []domain.AudioTrack

	for _, p := range bundle.POIs {
		if p.Slug == "" || (p.Lat == 0 && p.Lon == 0) {
			log.Printf("[%s] skipping poi %q (missing slug or location)", entry.Slug, p.Name)
			continue
		}

		poiBatch = append(poiBatch, domain.POI{
			Slug:                 p.Slug,
			Name:                 p.Name,
			Description:          p.Description,
			Category:             p.Category,
			Location:             domain.GeoPoint{Lat: p.Lat, Lon: p.Lon},
			Address:              p.Address,
			WheelchairAccessible: p.WheelchairAccessible,
			Metadata:             p.Metadata,
		})

		for _, t := range p.Tracks {
			track := domain.AudioTrack{
				TrackID:         t.TrackID,
				Title:           t.Title,
				Description:     t.Description,
				Language:        t.Language,
				AudioURL:        t.AudioURL,
				DurationSeconds: t.DurationSeconds,
				Position:        t.Position,
			}
			if t.GeofenceLat != nil && t.GeofenceLon != nil && t.GeofenceRadiusM != nil {
				track.Geofence = &domain.Geofence{
					Location:     domain.GeoPoint{Lat: *t.GeofenceLat, Lon: *t.GeofenceLon},
					RadiusMeters: *t.GeofenceRadiusM,
					AutoTrigger:  t.AutoTrigger,
				}
			}
			trackBatch = append(trackBatch, track)
		}
	}

	if err := pois.UpsertBatch(ctx, poiBatch); err != nil {
		return fmt.Errorf("upsert pois: %w", err)
	}

	// Tracks nest under a POI in the bundle but carry its database UUID in
	// the tracks table, so resolve slugs after the POI upsert lands.
	if err := resolveTrackPOIs(ctx, pois, bundle.POIs, trackBatch); err != nil {
		return err
	}
	if err := tracks.UpsertBatch(ctx, trackBatch); err != nil {
		return fmt.Errorf("upsert tracks: %w", err)
	}

	log.Printf("[%s] %d pois, %d tracks", entry.Slug, len(poiBatch), len(trackBatch))
	return nil
}

// resolveTrackPOIs fills each track's POIID with the database UUID of the
// POI it was nested under in the bundle.
func resolveTrackPOIs(ctx context.Context, pois *postgres.POIRepo, entries []POIEntry, tracks []domain.AudioTrack) error {
	idx := 0
	for _, p := range entries {
		if p.Slug == "" || (p.Lat == 0 && p.Lon == 0) {
			continue
		}
		stored, err := pois.GetBySlug(ctx, p.Slug)
		if err != nil {
			return fmt.Errorf("resolve poi %s: %w", p.Slug, err)
		}
		for range p.Tracks {
			tracks[idx].POIID = stored.ID
			idx++
		}
	}
	return nil
}

func fetchBundle(client *http.Client, entry BundleEntry) ([]byte, error) {
	if entry.File != "" {
		data, err := os.ReadFile(entry.File)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.File, err)
		}
		return data, nil
	}

	log.Printf("[%s] downloading bundle from %s", entry.Slug, entry.URL)
	resp, err := client.Get(entry.URL)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, entry.URL)
	}

	return io.ReadAll(resp.Body)
}
