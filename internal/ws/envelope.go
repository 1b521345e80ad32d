package ws

import (
	"encoding/json"
	"fmt"

	"github.com/jobpulse/notify/internal/domain"
)

// Wire events exchanged over the push channel.
const (
	// EventRegister is the client→server identity announcement. A session
	// that never registers receives nothing; that is not an error.
	EventRegister = "register"
	// EventNotification is the server→client push payload.
	EventNotification = "notification"
)

// Envelope is the framing for every message on the push channel.
type Envelope struct {
	Event  string               `json:"event"`
	UserID string               `json:"userId,omitempty"`
	Data   *domain.Notification `json:"data,omitempty"`
}

// EncodeNotification frames a notification for the wire.
func EncodeNotification(n *domain.Notification) ([]byte, error) {
	payload, err := json.Marshal(Envelope{Event: EventNotification, Data: n})
	if err != nil {
		return nil, fmt.Errorf("encode notification envelope: %w", err)
	}
	return payload, nil
}

// DecodeEnvelope parses an inbound frame. Unknown events are returned
// as-is; callers decide whether to ignore them.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
