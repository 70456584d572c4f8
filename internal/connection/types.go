package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the connection phase tracked by the Manager.
type State int

const (
	StateIdle         State = iota // No transport, no pending retry
	StateConnecting                // Transport dialed, waiting for open
	StateOpen                      // Transport open
	StatePendingRetry              // Transport closed, one retry timer armed
	StateTerminal                  // Retry ceiling reached, dormant until Connect
)

// String returns the state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StatePendingRetry:
		return "pending_retry"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// FrameHandler consumes raw frames received on the transport.
type FrameHandler interface {
	HandleFrame(data []byte)
}

// FrameHandlerFunc adapts a function to the FrameHandler interface.
type FrameHandlerFunc func(data []byte)

// HandleFrame calls f(data).
func (f FrameHandlerFunc) HandleFrame(data []byte) {
	f(data)
}

// TransportConfig configures a WebSocket transport.
type TransportConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8000/ws/notifications)
	Token            string        // Bearer token for the Authorization header (empty = none)
	HandshakeTimeout time.Duration // 0 = no handshake timeout
	PingInterval     time.Duration // Interval between keepalive pings
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for control frames
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		PingInterval: 30 * time.Second,
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Backoff Policy
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Backoff: DefaultPolicy(),
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State       string    `json:"state"`
	Attempts    int       `json:"attempts"`
	Session     string    `json:"session,omitempty"`
	Dials       int64     `json:"dials"`
	Opens       int64     `json:"opens"`
	LastOpenAt  time.Time `json:"last_open_at"`
	LastCloseAt time.Time `json:"last_close_at"`
}
