package bridge

import (
	"strings"
	"time"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"

	// TypeRequestLocation asks the parent to send the location id.
	TypeRequestLocation = "REQUEST_LOCATION_ID"
	// TypeLocation is the conventional type of a parent's reply.
	TypeLocation = "LOCATION_ID"
)

// Message is a single payload exchanged with the embedding parent. Only
// LocationID matters on inbound messages; the other fields are informational.
type Message struct {
	Type       string    `json:"type,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	LocationID string    `json:"locationId,omitempty"`
	ReplyTo    string    `json:"reply_to,omitempty"`
	ServerTime time.Time `json:"server_time,omitempty"`
}

// Normalize trims fields before the message is handed to a handler.
func (m *Message) Normalize() {
	if m == nil {
		return
	}
	m.Type = strings.TrimSpace(m.Type)
	m.RequestID = strings.TrimSpace(m.RequestID)
	m.LocationID = strings.TrimSpace(m.LocationID)
	m.ReplyTo = strings.TrimSpace(m.ReplyTo)
}

// CarriesLocation reports whether the payload has a locationId field.
func (m Message) CarriesLocation() bool {
	return m.LocationID != ""
}

// MessageHandler consumes inbound messages that carry a location id.
type MessageHandler interface {
	HandleMessage(Message) error
}

// MessageHandlerFunc adapts a function into a MessageHandler.
type MessageHandlerFunc func(Message) error

// HandleMessage executes f(m).
func (f MessageHandlerFunc) HandleMessage(m Message) error {
	if f == nil {
		return nil
	}
	return f(m)
}

// Logger records bridge status information. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type messageResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
