package observer

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"

	"github.com/pthm-cable/flock/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

type received struct {
	Type string         `json:"type"`
	Tick int32          `json:"tick"`
	Data map[string]any `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m received
	if err := sonnet.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func TestBroadcastReachesClient(t *testing.T) {
	h := NewHub(quietLogger(), false)
	conn := dial(t, h)

	h.Window(telemetry.WindowStats{WindowEndTick: 120, Mode: "parallel", Agents: 300})
	h.Bookmark(telemetry.Bookmark{Type: telemetry.BookmarkScatter, Tick: 120, Description: "spread"})

	w := readMessage(t, conn)
	if w.Type != TypeWindow || w.Tick != 120 {
		t.Fatalf("first message = %s@%d, want %s@120", w.Type, w.Tick, TypeWindow)
	}
	if got := w.Data["Mode"]; got != "parallel" {
		t.Errorf("window mode = %v, want parallel", got)
	}

	b := readMessage(t, conn)
	if b.Type != TypeBookmark {
		t.Fatalf("second message type = %s, want %s", b.Type, TypeBookmark)
	}
	if got := b.Data["description"]; got != "spread" {
		t.Errorf("bookmark description = %v, want spread", got)
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub(quietLogger(), false)
	c := &client{out: make(chan []byte, 1)}
	h.register(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Perf(int32(i), "sequential", telemetry.PerfStats{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if got := h.Dropped(); got != 4 {
		t.Errorf("dropped = %d, want 4", got)
	}
}

func TestNilHubIgnoresBroadcast(t *testing.T) {
	var h *Hub
	h.Window(telemetry.WindowStats{})
	h.Bookmark(telemetry.Bookmark{})
}

func TestClientUnregistersOnClose(t *testing.T) {
	h := NewHub(quietLogger(), false)
	conn := dial(t, h)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:5000", true},
		{"[::1]:5000", true},
		{"10.0.0.4:5000", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := isLoopbackRemote(tt.addr); got != tt.want {
			t.Errorf("isLoopbackRemote(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}
