package hub

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/placeboard/placeboard/internal/bus"
)

func dialHub(t *testing.T, broker *bus.Broker) *websocket.Conn {
	t.Helper()
	h := New(broker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, broker *bus.Broker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d subscribers", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestViewerReceivesEvents(t *testing.T) {
	broker := bus.NewBroker(16, nil)
	conn := dialHub(t, broker)
	waitForSubscribers(t, broker, 1)

	user := "alice"
	sent := bus.Event{X: 3, Y: 4, Color: "#ff0000", UserID: &user, CreatedAt: 1700000000000}
	broker.Dispatch(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got bus.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if got.X != 3 || got.Y != 4 || got.Color != "#ff0000" {
		t.Errorf("got %+v, want %+v", got, sent)
	}
	if got.UserID == nil || *got.UserID != "alice" {
		t.Errorf("UserID = %v, want alice", got.UserID)
	}
	if got.CreatedAt != 1700000000000 {
		t.Errorf("CreatedAt = %d, want 1700000000000", got.CreatedAt)
	}
}

func TestMultipleViewersAllReceive(t *testing.T) {
	broker := bus.NewBroker(16, nil)
	conn1 := dialHub(t, broker)
	conn2 := dialHub(t, broker)
	waitForSubscribers(t, broker, 2)

	broker.Dispatch(bus.Event{X: 7, Color: "#00ff00"})

	for i, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got bus.Event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("viewer %d: ReadJSON: %v", i, err)
		}
		if got.X != 7 {
			t.Errorf("viewer %d: X = %d, want 7", i, got.X)
		}
	}
}

func TestViewerDisconnectUnsubscribes(t *testing.T) {
	broker := bus.NewBroker(16, nil)
	conn := dialHub(t, broker)
	waitForSubscribers(t, broker, 1)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber was not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
