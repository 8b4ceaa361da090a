package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestWSHandler_SubscribeAndReceive(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(NewWSHandler(hub, func(*http.Request) bool { return true }, nil))
	defer srv.Close()

	conn := dialWS(t, srv)
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: "event-1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return hub.Count("event-1") == 1 })

	hub.Publish(context.Background(), "event-1", map[string]string{"type": "eventUpdate", "eventId": "event-1"})
	if got := readFrame(t, conn); !strings.Contains(got, `"eventUpdate"`) {
		t.Fatalf("unexpected frame %s", got)
	}

	conn.WriteJSON(ClientMsg{Type: "ping"})
	if got := readFrame(t, conn); got != `{"type":"pong"}`+"\n" && got != `{"type":"pong"}` {
		t.Fatalf("expected pong, got %q", got)
	}

	conn.WriteJSON(ClientMsg{Type: "unsubscribe", EventID: "event-1"})
	waitFor(t, func() bool { return hub.Count("event-1") == 0 })
}

func TestWSHandler_SealedTopicRejected(t *testing.T) {
	hub := NewHub(nil)
	hub.Seal(context.Background(), "event-1")
	srv := httptest.NewServer(NewWSHandler(hub, func(*http.Request) bool { return true }, nil))
	defer srv.Close()

	conn := dialWS(t, srv)
	conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: "event-1"})
	if got := readFrame(t, conn); !strings.Contains(got, "event already settled") {
		t.Fatalf("expected settled error, got %s", got)
	}
	if hub.Count("event-1") != 0 {
		t.Fatal("sealed topic must not gain subscribers")
	}
}

func TestWSHandler_DisconnectCleansUp(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(NewWSHandler(hub, func(*http.Request) bool { return true }, nil))
	defer srv.Close()

	conn := dialWS(t, srv)
	conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: "event-1"})
	conn.WriteJSON(ClientMsg{Type: "subscribe", EventID: "event-2"})
	waitFor(t, func() bool { return hub.Count("event-1") == 1 && hub.Count("event-2") == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Count("event-1") == 0 && hub.Count("event-2") == 0 })
}
