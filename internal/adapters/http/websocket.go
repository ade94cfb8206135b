package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/aritzm/guidepost/internal/core/domain"
	"github.com/aritzm/guidepost/internal/core/ports"
	"github.com/aritzm/guidepost/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds or
// to stream a position sample.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe" | "position"
	Session string `json:"session"` // session ID filter (optional for subscriptions, "" = all)
	Channel string `json:"channel"` // "triggers" | "push" | "updates" (default: triggers)

	// Position payload, used when Action is "position".
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// wsPositionSample validates a streamed position message and converts
// it into the sample the JetStream pipeline consumes.
func wsPositionSample(m wsMessage) (*domain.PositionSample, error) {
	if m.Session == "" {
		return nil, errors.New("position requires a session")
	}
	loc := domain.GeoPoint{Lat: m.Lat, Lon: m.Lon}
	if !loc.Valid() {
		return nil, domain.ErrInvalidCoordinates
	}
	return &domain.PositionSample{
		SessionID:      m.Session,
		Location:       loc,
		AccuracyMeters: m.AccuracyMeters,
		Time:           time.Now().UTC(),
	}, nil
}

// WebSocketHandler returns a handler that upgrades to WebSocket,
// relays fired triggers from NATS to connected clients, and accepts
// streamed position samples which it validates and publishes to
// JetStream for the tracker worker.
// Clients send JSON: {"action":"subscribe","session":"<uuid>","channel":"triggers"}
// or {"action":"position","session":"<uuid>","lat":43.26,"lon":-2.93}.
// An empty session means all sessions. Default channel is "triggers".
func WebSocketHandler(nc *nats.Conn, events ports.EventPublisher) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		log.Printf("ws client connected: %s", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Auto-subscribe to all fired triggers by default
		defaultSubject := "guide.trigger.>"
		sub, err := nc.Subscribe(defaultSubject, func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		})
		if err != nil {
			log.Printf("ws default subscribe error: %v", err)
			return
		}
		subs[defaultSubject] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			if m.Action == "position" {
				ps, err := wsPositionSample(m)
				if err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
					continue
				}
				if events == nil {
					_ = writeJSON(map[string]string{"error": "position streaming not available"})
					continue
				}
				if err := events.PublishPositionSample(context.Background(), ps); err != nil {
					_ = writeJSON(map[string]string{"error": "position not accepted"})
					continue
				}
				// The tracker counts the sample when it processes it.
				continue
			}

			// Build NATS subject
			channel := m.Channel
			if channel == "" {
				channel = "triggers"
			}

			var subject string
			switch channel {
			case "triggers":
				if m.Session != "" {
					subject = "guide.trigger." + m.Session
				} else {
					subject = "guide.trigger.>"
				}
			case "push":
				if m.Session != "" {
					subject = "guide.push." + m.Session
				} else {
					subject = "guide.push.>"
				}
			case "updates":
				subject = "guide.updates.broadcast"
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Printf("ws client disconnected: %s", remoteAddr)
	}
}
