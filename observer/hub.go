// Package observer streams telemetry to websocket clients as it is flushed.
package observer

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sugawarayuuta/sonnet"

	"github.com/pthm-cable/flock/telemetry"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

// Message types.
const (
	TypeWindow   = "WINDOW"
	TypePerf     = "PERF"
	TypeBookmark = "BOOKMARK"
)

// Message is one JSON frame sent to every client.
type Message struct {
	Type string `json:"type"`
	Tick int32  `json:"tick"`
	Data any    `json:"data"`
}

// Hub fans messages out to connected clients. A client that falls behind
// loses messages rather than stalling the simulation.
type Hub struct {
	logger        *slog.Logger
	allowNonLocal bool

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	dropped int64
}

type client struct {
	out chan []byte
}

// NewHub creates a hub. Unless allowNonLocal is set only loopback peers may
// connect.
func NewHub(logger *slog.Logger, allowNonLocal bool) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:        logger,
		allowNonLocal: allowNonLocal,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were discarded for slow clients.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Broadcast encodes msg once and queues it for every client. It never blocks.
// A nil hub ignores the call.
func (h *Hub) Broadcast(msg Message) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}
	b, err := sonnet.Marshal(msg)
	if err != nil {
		h.logger.Error("observer encode failed", "type", msg.Type, "error", err)
		return
	}
	for c := range h.clients {
		select {
		case c.out <- b:
		default:
			h.dropped++
		}
	}
}

// Window publishes a flushed stats window.
func (h *Hub) Window(s telemetry.WindowStats) {
	h.Broadcast(Message{Type: TypeWindow, Tick: s.WindowEndTick, Data: s})
}

// Perf publishes tick timing for the window ending at tick, in the same
// shape as perf.csv rows.
func (h *Hub) Perf(tick int32, mode string, p telemetry.PerfStats) {
	h.Broadcast(Message{Type: TypePerf, Tick: tick, Data: p.ToCSV(tick, mode)})
}

// Bookmark publishes a detected bookmark.
func (h *Hub) Bookmark(b telemetry.Bookmark) {
	h.Broadcast(Message{Type: TypeBookmark, Tick: b.Tick, Data: b})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Handler upgrades the request and streams messages until the peer goes away.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.allowNonLocal && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		c := &client{out: make(chan []byte, clientBuffer)}
		h.register(c)
		defer h.unregister(c)
		h.logger.Info("observer connected", "remote", r.RemoteAddr)

		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Clients only listen; reading detects the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		h.logger.Info("observer disconnected", "remote", r.RemoteAddr)
	}
}

// Serve listens on addr and serves the stream at /ws until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
