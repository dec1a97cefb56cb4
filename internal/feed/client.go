package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Client maintains a best-effort live connection to the backend feed,
// transparently recovering from drops and delivering decoded messages.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	// Output channels
	messages chan Message
	states   chan StateChange

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	conn  *Conn
	state State
	stats ClientStats
}

// NewClient creates a new reconnecting feed client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan Message, cfg.BufferSize),
		states:   make(chan StateChange, 16),
		state:    StateDisconnected,
	}
}

// Start begins the connect/reconnect loop.
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.run()

	c.logger.Info("feed client started",
		"url", c.cfg.URL,
		"ping_interval", c.cfg.PingInterval,
		"max_attempts", c.cfg.Reconnect.MaxAttempts,
	)

	return nil
}

// Stop tears down the connection and cancels all pending timers.
// Safe to call multiple times.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("feed client stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send marshals v and transmits it on the current connection. The feed is a
// best-effort channel: failures are logged and returned, never fatal.
func (c *Client) Send(v any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		c.logger.Debug("send skipped, not connected")
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := conn.Send(data); err != nil {
		c.logger.Debug("send failed", "error", err)
		return err
	}
	return nil
}

// Messages returns the channel of decoded feed messages.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// States returns the channel of state transitions.
func (c *Client) States() <-chan StateChange {
	return c.states
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Stats returns current runtime counters.
func (c *Client) Stats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.stats
	stats.State = c.state
	return stats
}

// run is the connect/reconnect loop. The attempt counter resets to zero on
// every successful connect, so a long-lived connection that drops starts its
// recovery from the base delay again.
func (c *Client) run() {
	defer c.wg.Done()
	defer close(c.messages)
	defer close(c.states)

	attempt := 0
	for {
		c.setState(StateConnecting, nil)

		conn := NewConn(ConnConfig{
			URL:          c.cfg.URL,
			APIKey:       c.cfg.APIKey,
			WriteTimeout: c.cfg.WriteTimeout,
			BufferSize:   c.cfg.BufferSize,
		}, c.logger)

		err := conn.Connect(c.ctx)
		if err == nil {
			attempt = 0
			c.mu.Lock()
			c.conn = conn
			c.stats.Attempts = 0
			c.stats.Connects++
			c.stats.LastConnectedAt = time.Now().UnixMicro()
			c.mu.Unlock()
			c.setState(StateConnected, nil)

			err = c.session(conn)

			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			conn.Close()

			if c.ctx.Err() != nil || errors.Is(err, ErrNormalClosure) {
				c.setState(StateDisconnected, nil)
				return
			}
		} else if c.ctx.Err() != nil {
			c.setState(StateDisconnected, nil)
			return
		}

		// Abnormal drop or dial failure: schedule a reconnect, or give up
		// once the attempt budget is spent.
		if attempt >= c.cfg.Reconnect.MaxAttempts {
			c.logger.Error("reconnect attempts exhausted",
				"attempts", attempt,
				"last_error", err,
			)
			c.setState(StateFailed, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempt, err))
			return
		}

		delay := c.cfg.Reconnect.Delay(attempt)
		attempt++

		c.mu.Lock()
		c.stats.Attempts = attempt
		c.mu.Unlock()

		c.setState(StateReconnecting, err)
		c.logger.Info("scheduling reconnect",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-c.ctx.Done():
			c.setState(StateDisconnected, nil)
			return
		case <-time.After(delay):
		}
	}
}

// session pumps one connection until it drops, goes stale, or the client stops.
// Any inbound message counts as proof of life and resets the missed counter.
func (c *Client) session(conn *Conn) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()

		case err := <-conn.Errors():
			return err

		case <-ticker.C:
			missed++
			if missed >= c.cfg.MissedThreshold {
				// The transport may still report the socket open; force
				// the reconnect cycle ourselves.
				c.logger.Warn("no inbound traffic, forcing reconnect",
					"missed_intervals", missed,
				)
				return ErrStaleConnection
			}
			c.sendPing(conn)

		case msg, ok := <-conn.Messages():
			if !ok {
				return ErrNotConnected
			}
			missed = 0
			c.dispatch(msg)
		}
	}
}

// sendPing sends the application-level heartbeat.
func (c *Client) sendPing(conn *Conn) {
	data, err := json.Marshal(pingFrame{Type: "ping", Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}

	if err := conn.Send(data); err != nil {
		c.logger.Debug("ping send failed", "error", err)
		return
	}

	c.mu.Lock()
	c.stats.PingsSent++
	c.mu.Unlock()
}

// dispatch decodes a raw frame and forwards it to the consumer. A malformed
// frame is logged and dropped; it never disturbs the connection.
func (c *Client) dispatch(raw TimestampedMessage) {
	c.mu.Lock()
	c.stats.MessagesReceived++
	c.mu.Unlock()

	var frame wireFrame
	if err := json.Unmarshal(raw.Data, &frame); err != nil || frame.Type == "" {
		c.mu.Lock()
		c.stats.ParseErrors++
		c.mu.Unlock()
		c.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	msg := Message{
		Kind:       frame.Type,
		Data:       frame.Data,
		Timestamp:  frame.Timestamp,
		ReceivedAt: raw.ReceivedAt,
	}

	select {
	case c.messages <- msg:
	default:
		c.logger.Warn("message buffer full, dropping message", "kind", msg.Kind)
	}
}

// setState records a transition and notifies the consumer without blocking.
// A full channel drops intermediate transitions, but the terminal failure
// evicts the oldest queued change so it is always delivered.
func (c *Client) setState(s State, err error) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.mu.Unlock()

	if old == s {
		return
	}

	change := StateChange{From: old, To: s, Err: err}

	select {
	case c.states <- change:
		return
	default:
	}

	if s != StateFailed {
		c.logger.Debug("state channel full, dropping transition",
			"from", old, "to", s,
		)
		return
	}

	select {
	case <-c.states:
	default:
	}
	select {
	case c.states <- change:
	default:
	}
}
