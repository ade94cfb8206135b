package natsadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// PushNotifier implements ports.NotificationService by publishing push
// payloads on a per-session NATS subject. The WebSocket relay forwards them
// to the session's connected clients; there is no external push provider.
type PushNotifier struct {
	conn *nats.Conn
}

// NewPushNotifier wraps an existing NATS connection.
func NewPushNotifier(conn *nats.Conn) *PushNotifier {
	return &PushNotifier{conn: conn}
}

type pushPayload struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// SendPush publishes the notification on guide.push.<sessionID>.
func (n *PushNotifier) SendPush(ctx context.Context, sessionID, title, body string) error {
	data, err := json.Marshal(pushPayload{
		Type:      "push",
		SessionID: sessionID,
		Title:     title,
		Body:      body,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return n.conn.Publish("guide.push."+sessionID, data)
}
