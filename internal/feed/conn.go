package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single WebSocket connection to the trading backend.
// It only moves bytes; heartbeats and reconnection live in Client.
type Conn struct {
	cfg    ConnConfig
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu        sync.RWMutex
	connected bool
	closed    bool
	closeCode int // Last close code received from the peer, 0 if none
}

// NewConn creates a new WebSocket connection wrapper.
func NewConn(cfg ConnConfig, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}

	return &Conn{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readLoop()

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Close tears down the connection. Safe to call multiple times.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	// Signal the read loop to stop
	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// Send writes raw bytes to the connection.
func (c *Conn) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the raw message channel.
func (c *Conn) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Errors returns the connection error channel. A normal close (code 1000)
// is reported as ErrNormalClosure; anything else means an abnormal drop.
func (c *Conn) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *Conn) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// CloseCode returns the close code received from the peer, or 0 if the
// connection never received a close frame.
func (c *Conn) CloseCode() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeCode
}

// readLoop reads frames from the WebSocket and sends them to the messages channel.
func (c *Conn) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
			}

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.mu.Lock()
				c.closeCode = closeErr.Code
				c.mu.Unlock()
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				err = ErrNormalClosure
			}
			select {
			case c.errors <- err:
			default:
			}
			return
		}

		msg := TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping message")
		}
	}
}
