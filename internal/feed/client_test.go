package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:             url,
		PingInterval:    time.Minute, // Effectively off unless a test lowers it
		MissedThreshold: 3,
		Reconnect: ReconnectPolicy{
			Base:        10 * time.Millisecond,
			Max:         50 * time.Millisecond,
			MaxAttempts: 10,
		},
		WriteTimeout: time.Second,
		BufferSize:   100,
	}
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func stopClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestClient_ConnectAndReceive(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		frame := `{"type":"signal","timestamp":1705328200000,"data":{"id":"sig-1","symbol":"BTCUSDT"}}`
		conn.WriteMessage(websocket.TextMessage, []byte(frame))
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	waitForState(t, client, StateConnected)

	select {
	case msg := <-client.Messages():
		if msg.Kind != "signal" {
			t.Errorf("Kind = %q, want signal", msg.Kind)
		}
		if msg.Timestamp != 1705328200000 {
			t.Errorf("Timestamp = %d, want 1705328200000", msg.Timestamp)
		}
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.ID != "sig-1" {
			t.Errorf("payload id = %q, want sig-1", payload.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestClient_MalformedFrameIgnored(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"missing":"type"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	// The malformed frames must not disturb the connection; the valid frame
	// behind them still arrives.
	select {
	case msg := <-client.Messages():
		if msg.Kind != "heartbeat" {
			t.Errorf("Kind = %q, want heartbeat", msg.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message after malformed frames")
	}

	if client.State() != StateConnected {
		t.Errorf("state = %v, want connected", client.State())
	}

	stats := client.Stats()
	if stats.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
}

func TestClient_NormalCloseNoReconnect(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second),
		)
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	waitForState(t, client, StateDisconnected)

	// Give any (wrong) reconnect a chance to happen before asserting.
	time.Sleep(100 * time.Millisecond)
	if got := conns.Load(); got != 1 {
		t.Errorf("connections = %d, want 1 (no reconnect after normal close)", got)
	}
}

func TestClient_ReconnectAfterDrop(t *testing.T) {
	var conns atomic.Int64
	dropSecond := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		switch conns.Add(1) {
		case 1:
			// Drop the first connection without a close frame
			conn.Close()
		case 2:
			<-dropSecond
			conn.Close()
		default:
			time.Sleep(time.Second)
		}
	})
	defer server.Close()

	var dropOnce sync.Once
	dropNow := func() { dropOnce.Do(func() { close(dropSecond) }) }
	defer dropNow()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	waitForConns := func(want int64) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && conns.Load() < want {
			time.Sleep(5 * time.Millisecond)
		}
		if conns.Load() < want {
			t.Fatalf("connections = %d, want %d", conns.Load(), want)
		}
	}

	waitForConns(2)
	waitForState(t, client, StateConnected)
	if got := client.Stats().Connects; got != 2 {
		t.Errorf("Connects = %d, want 2", got)
	}
	if got := client.Stats().Attempts; got != 0 {
		t.Errorf("Attempts = %d, want 0 after a successful reconnect", got)
	}

	// Drop the recovered connection too: the attempt counter must restart
	// from zero, so recovery again takes a single base-delay attempt.
	dropNow()
	waitForConns(3)
	waitForState(t, client, StateConnected)
	if got := client.Stats().Connects; got != 3 {
		t.Errorf("Connects = %d, want 3", got)
	}
	if got := client.Stats().Attempts; got != 0 {
		t.Errorf("Attempts = %d, want 0 after the second recovery", got)
	}
}

func TestClient_FailedAfterMaxAttempts(t *testing.T) {
	cfg := testClientConfig("ws://127.0.0.1:1") // Nothing listens here
	cfg.Reconnect = ReconnectPolicy{
		Base:        time.Millisecond,
		Max:         5 * time.Millisecond,
		MaxAttempts: 3,
	}

	client := NewClient(cfg, nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	waitForState(t, client, StateFailed)

	// The terminal transition carries the exhaustion error.
	var failure StateChange
	for change := range client.States() {
		if change.To == StateFailed {
			failure = change
			break
		}
	}
	if !errors.Is(failure.Err, ErrAttemptsExhausted) {
		t.Errorf("failure error = %v, want ErrAttemptsExhausted", failure.Err)
	}
	if got := client.Stats().Attempts; got != 3 {
		t.Errorf("Attempts = %d, want 3", got)
	}
}

func TestClient_TerminalFailureSurvivesFullStateChannel(t *testing.T) {
	cfg := testClientConfig("ws://127.0.0.1:1") // Nothing listens here
	cfg.Reconnect = ReconnectPolicy{
		Base:        time.Millisecond,
		Max:         2 * time.Millisecond,
		MaxAttempts: 10,
	}

	client := NewClient(cfg, nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	// Nobody consumes States() during the exhaustion run, so ten attempts
	// emit more transitions than the channel holds. The terminal failure
	// must still come out the other end.
	waitForState(t, client, StateFailed)

	var last StateChange
	for change := range client.States() {
		last = change
	}
	if last.To != StateFailed {
		t.Errorf("last delivered transition = %v, want %v", last.To, StateFailed)
	}
	if !errors.Is(last.Err, ErrAttemptsExhausted) {
		t.Errorf("failure error = %v, want ErrAttemptsExhausted", last.Err)
	}
}

func TestClient_SendsHeartbeatPings(t *testing.T) {
	pings := make(chan pingFrame, 16)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ping pingFrame
			if json.Unmarshal(data, &ping) == nil && ping.Type == "ping" {
				pings <- ping
				// Answer so the connection never looks stale
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
			}
		}
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	select {
	case ping := <-pings:
		if ping.Timestamp == 0 {
			t.Error("ping timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for heartbeat ping")
	}

	if client.State() != StateConnected {
		t.Errorf("state = %v, want connected", client.State())
	}
}

func TestClient_StaleConnectionForcesReconnect(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		// Read but never answer: the connection goes silent.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 10 * time.Millisecond
	cfg.MissedThreshold = 2

	client := NewClient(cfg, nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && conns.Load() < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	if conns.Load() < 2 {
		t.Fatal("stale connection was not recycled")
	}
}

func TestClient_InboundTrafficResetsMissedCount(t *testing.T) {
	var conns atomic.Int64
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		// Chatter steadily so the client never sees a silent interval.
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)); err != nil {
					return
				}
			}
		}
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 15 * time.Millisecond
	cfg.MissedThreshold = 2

	client := NewClient(cfg, nil)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopClient(t, client)

	waitForState(t, client, StateConnected)

	// Several missed-threshold windows pass; steady traffic must keep the
	// original connection alive.
	time.Sleep(150 * time.Millisecond)

	if got := conns.Load(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
	if client.State() != StateConnected {
		t.Errorf("state = %v, want connected", client.State())
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://127.0.0.1:1"), nil)

	if err := client.Send(map[string]string{"type": "ping"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}
