package feed

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrStaleConnection   = errors.New("connection stale (no inbound traffic)")
	ErrNormalClosure     = errors.New("connection closed normally")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrAttemptsExhausted = errors.New("reconnect attempts exhausted")
)

// State is the connection state visible to consumers.
type State int

const (
	// StateDisconnected means no connection exists and none is being attempted.
	StateDisconnected State = iota

	// StateConnecting means a dial is in progress.
	StateConnecting

	// StateConnected means the connection is established and healthy.
	StateConnected

	// StateReconnecting means the connection dropped abnormally and a
	// retry is scheduled.
	StateReconnecting

	// StateFailed is terminal: every reconnect attempt failed and no
	// further attempts will be scheduled.
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateChange reports a state transition. Err is set when the transition
// was caused by a failure (drop, dial error, exhausted attempts).
type StateChange struct {
	From State
	To   State
	Err  error
}

// TimestampedMessage wraps raw frame bytes with a local receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from the WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Message is a decoded feed frame.
type Message struct {
	Kind       string          // "heartbeat", "signal", "signal_update", "position_update", "trade_update", ...
	Data       json.RawMessage // Kind-specific payload, may be nil for heartbeats
	Timestamp  int64           // Backend timestamp from the frame, 0 if absent
	ReceivedAt time.Time       // Local receive time
}

// wireFrame matches the backend's feed frame shape.
type wireFrame struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// pingFrame is the outbound heartbeat.
type pingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// ConnConfig configures a single WebSocket connection.
type ConnConfig struct {
	URL          string        // WebSocket URL (e.g. wss://backend.example.com/ws)
	APIKey       string        // Bearer token, empty = no auth
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// ClientConfig configures the reconnecting client.
type ClientConfig struct {
	URL             string
	APIKey          string
	PingInterval    time.Duration   // Heartbeat send interval
	MissedThreshold int             // Silent intervals before forcing a reconnect
	Reconnect       ReconnectPolicy // Backoff schedule
	WriteTimeout    time.Duration
	BufferSize      int // Decoded message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval:    30 * time.Second,
		MissedThreshold: 3,
		Reconnect:       DefaultReconnectPolicy(),
		WriteTimeout:    5 * time.Second,
		BufferSize:      1000,
	}
}

// ClientStats reports runtime counters for the feed client.
type ClientStats struct {
	State            State
	Attempts         int   // Consecutive failed attempts in the current cycle
	Connects         int64 // Successful connections over the client's lifetime
	MessagesReceived int64
	ParseErrors      int64
	PingsSent        int64
	LastConnectedAt  int64 // µs since epoch, 0 if never connected
}
