package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/formcheck/internal/analysis"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// LatestSource publishes the most recent live result.
type LatestSource interface {
	Latest() (analysis.Result, bool)
}

// LiveStreamHandler broadcasts the live session's results via WebSocket.
type LiveStreamHandler struct {
	source   LatestSource
	interval time.Duration
	logger   *slog.Logger
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	stop     chan struct{}
	once     sync.Once
}

// NewLiveStreamHandler creates a handler that pushes new results from src every
// interval. Call Close to stop the broadcaster.
func NewLiveStreamHandler(src LatestSource, interval time.Duration, logger *slog.Logger) *LiveStreamHandler {
	if interval <= 0 {
		interval = 66 * time.Millisecond // ~15 FPS
	}
	h := &LiveStreamHandler{
		source:   src,
		interval: interval,
		logger:   logger,
		clients:  make(map[*websocket.Conn]bool),
		stop:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Watchers never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected watchers.
func (h *LiveStreamHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster. Connected watchers stay open until they leave.
func (h *LiveStreamHandler) Close() {
	h.once.Do(func() { close(h.stop) })
}

// broadcast sends each new result to all connected clients.
func (h *LiveStreamHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastTimestamp int64 = -1
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		res, ok := h.source.Latest()
		if !ok || res.Timestamp == lastTimestamp {
			continue
		}
		lastTimestamp = res.Timestamp

		msg, err := json.Marshal(serverMessage{Type: msgAnalysis, Result: &res})
		if err != nil {
			h.logger.Warn("failed to encode live result", "error", err)
			continue
		}

		h.mu.RLock()
		for conn := range h.clients {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// The reader loop sees the closed connection and unregisters it.
				conn.Close()
			}
		}
		h.mu.RUnlock()
	}
}
