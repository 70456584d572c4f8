package notification

import (
	"encoding/json"
	"time"
)

// TypeNotification is the only envelope type acted upon.
const TypeNotification = "notification"

// Envelope is the wire-level wrapper for every frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Notification is a decoded notification payload.
// Fields are opaque to this package; Raw holds the payload bytes verbatim.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`

	Raw json.RawMessage `json:"-"`
}

// Time parses Timestamp as RFC 3339. Returns the zero time if unparseable.
func (n Notification) Time() time.Time {
	ts, err := time.Parse(time.RFC3339, n.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Sink records decoded notifications. Must not block on I/O.
type Sink interface {
	AddNotification(n Notification)
}

// Alerter presents a transient, fire-and-forget alert.
type Alerter interface {
	PresentTransientAlert(title, message string)
}

// Archiver enqueues notifications for durable history. Must not block.
type Archiver interface {
	Archive(n Notification)
}

// AlerterFunc adapts a function to the Alerter interface.
type AlerterFunc func(title, message string)

// PresentTransientAlert calls f(title, message).
func (f AlerterFunc) PresentTransientAlert(title, message string) {
	f(title, message)
}
