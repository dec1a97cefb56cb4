package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testConnConfig(url string) ConnConfig {
	return ConnConfig{
		URL:          url,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func TestConn_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Just keep the connection open
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !conn.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if conn.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
}

func TestConn_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	testMsg := []byte(`{"type": "ping", "timestamp": 1705328200000}`)
	if err := conn.Send(testMsg); err != nil {
		t.Errorf("Send failed: %v", err)
	}

	// Wait for message to be received
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if string(received) != string(testMsg) {
		t.Errorf("received %q, want %q", received, testMsg)
	}
}

func TestConn_Messages(t *testing.T) {
	testMessages := []string{
		`{"type": "signal", "data": {"id": "1"}}`,
		`{"type": "signal", "data": {"id": "2"}}`,
		`{"type": "heartbeat"}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		// Keep connection open
		time.Sleep(time.Second)
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	var received []string
	timeout := time.After(500 * time.Millisecond)

	for i := 0; i < len(testMessages); i++ {
		select {
		case msg := <-conn.Messages():
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	for i, want := range testMessages {
		if received[i] != want {
			t.Errorf("message %d: got %q, want %q", i, received[i], want)
		}
	}
}

func TestConn_SendNotConnected(t *testing.T) {
	conn := NewConn(testConnConfig("ws://localhost:12345"), nil)

	if err := conn.Send([]byte("test")); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestConn_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// First close should succeed
	if err := conn.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}

	// Second close should be no-op
	if err := conn.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestConn_ConnectAfterClose(t *testing.T) {
	conn := NewConn(testConnConfig("ws://localhost:12345"), nil)
	conn.Close()

	if err := conn.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestConn_NormalClosure(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(time.Second),
		)
		time.Sleep(100 * time.Millisecond)
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	select {
	case err := <-conn.Errors():
		if err != ErrNormalClosure {
			t.Errorf("expected ErrNormalClosure, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close error")
	}

	if code := conn.CloseCode(); code != websocket.CloseNormalClosure {
		t.Errorf("CloseCode = %d, want %d", code, websocket.CloseNormalClosure)
	}
}

func TestConn_AbnormalClosure(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Drop the connection without a close frame
		conn.Close()
	})
	defer server.Close()

	conn := NewConn(testConnConfig(wsURL(server)), nil)

	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	select {
	case err := <-conn.Errors():
		if err == ErrNormalClosure {
			t.Error("abnormal drop reported as normal closure")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close error")
	}
}
