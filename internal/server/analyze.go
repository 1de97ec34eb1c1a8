package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/exercise"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// Client message types on /api/analyze.
const (
	msgFrame       = "frame"
	msgSetExercise = "set_exercise"
	msgReset       = "reset"
	msgStats       = "stats"
	msgEnd         = "end"
)

// Server message types.
const (
	msgAnalysis = "analysis"
	msgSummary  = "summary"
	msgError    = "error"
)

type clientMessage struct {
	Type      string          `json:"type"`
	Landmarks json.RawMessage `json:"landmarks,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Exercise  string          `json:"exercise,omitempty"`
}

type serverMessage struct {
	Type    string           `json:"type"`
	Result  *analysis.Result `json:"result,omitempty"`
	Stats   *analysis.Stats  `json:"stats,omitempty"`
	Summary *session.Record  `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// AnalyzeHandler runs one browser-driven analysis session per WebSocket
// connection. The browser extracts landmarks itself and streams them as frame
// messages.
type AnalyzeHandler struct {
	config analysis.Config
	store  *store.Store
	logger *slog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	active sync.WaitGroup
}

// NewAnalyzeHandler creates a handler whose sessions use cfg and are logged to s.
// s may be nil.
func NewAnalyzeHandler(cfg analysis.Config, s *store.Store, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		config: cfg,
		store:  s,
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// Close disconnects every client and waits for their sessions to be logged.
func (h *AnalyzeHandler) Close() {
	h.mu.Lock()
	for conn := range h.conns {
		conn.Close()
	}
	h.mu.Unlock()
	h.active.Wait()
}

// ServeHTTP upgrades the connection and serves the session until the client
// leaves.
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cfg := h.config
	if v := r.URL.Query().Get("exercise"); v != "" {
		t, err := exercise.Parse(v)
		if err != nil {
			http.Error(w, "Unknown exercise", http.StatusBadRequest)
			return
		}
		cfg.Exercise = t
	}

	analyzer, err := analysis.New(cfg, h.logger.With("component", "analysis"))
	if err != nil {
		http.Error(w, "Failed to create analyzer", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	h.active.Add(1)
	defer h.active.Done()
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
	}()

	s := &analyzeSession{
		conn:     conn,
		analyzer: analyzer,
		tracker:  session.NewTracker(analyzer.Exercise(), session.OriginBrowser, nil),
		store:    h.store,
		logger:   h.logger,
		inbox:    newMailbox(maxPending),
		out:      make(chan serverMessage, 16),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.write(ctx)
	}()
	go func() {
		defer wg.Done()
		s.work(ctx)
	}()

	s.read(ctx)
	cancel()
	wg.Wait()

	// The worker has exited, so the tracker is ours again.
	s.finish()
}

// analyzeSession is one connection's state. The reader, the worker and the
// writer each run on their own goroutine; only the worker touches the analyzer
// and tracker, and only the writer touches the connection's write side.
type analyzeSession struct {
	conn     *websocket.Conn
	analyzer *analysis.Analyzer
	tracker  *session.Tracker
	store    *store.Store
	logger   *slog.Logger
	cancel   context.CancelFunc

	inbox *mailbox
	out   chan serverMessage
}

// maxPending bounds the messages queued for the worker.
const maxPending = 32

// mailbox queues client messages in arrival order. A frame still waiting
// directly behind another frame replaces it, so a slow worker skips stale
// frames, but nothing is ever reordered across a control message.
type mailbox struct {
	mu      sync.Mutex
	pending []clientMessage
	limit   int
	wake    chan struct{}
}

func newMailbox(limit int) *mailbox {
	return &mailbox{limit: limit, wake: make(chan struct{}, 1)}
}

// put enqueues msg and reports false when the queue is full.
func (m *mailbox) put(msg clientMessage) bool {
	m.mu.Lock()
	n := len(m.pending)
	switch {
	case msg.Type == msgFrame && n > 0 && m.pending[n-1].Type == msgFrame:
		m.pending[n-1] = msg
	case n >= m.limit:
		m.mu.Unlock()
		return false
	default:
		m.pending = append(m.pending, msg)
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// next blocks until a message is queued or ctx is done.
func (m *mailbox) next(ctx context.Context) (clientMessage, bool) {
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			msg := m.pending[0]
			m.pending[0] = clientMessage{}
			m.pending = m.pending[1:]
			m.mu.Unlock()
			return msg, true
		}
		m.mu.Unlock()

		select {
		case <-m.wake:
		case <-ctx.Done():
			return clientMessage{}, false
		}
	}
}

// read decodes client messages until the connection fails.
func (s *analyzeSession) read(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(ctx, serverMessage{Type: msgError, Error: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case msgFrame, msgSetExercise, msgReset, msgStats, msgEnd:
			if !s.inbox.put(msg) {
				s.send(ctx, serverMessage{Type: msgError, Error: "too many pending messages, " + msg.Type + " dropped"})
			}
		default:
			s.send(ctx, serverMessage{Type: msgError, Error: "unknown message type " + msg.Type})
		}
	}
}

// work owns the analyzer and handles messages in the order they arrived.
func (s *analyzeSession) work(ctx context.Context) {
	for {
		msg, ok := s.inbox.next(ctx)
		if !ok {
			return
		}
		if msg.Type != msgFrame {
			s.handleControl(ctx, msg)
			continue
		}
		ts := msg.Timestamp
		if ts == 0 {
			ts = time.Now().UnixMilli()
		}
		res := s.analyzer.Analyze(msg.Landmarks, ts)
		s.tracker.Add(res)
		s.send(ctx, serverMessage{Type: msgAnalysis, Result: &res})
	}
}

func (s *analyzeSession) handleControl(ctx context.Context, msg clientMessage) {
	switch msg.Type {
	case msgSetExercise:
		t, err := exercise.Parse(msg.Exercise)
		if err != nil {
			s.send(ctx, serverMessage{Type: msgError, Error: err.Error()})
			return
		}
		if t == s.analyzer.Exercise() {
			s.sendStats(ctx)
			return
		}
		if err := s.analyzer.SetExercise(t); err != nil {
			s.send(ctx, serverMessage{Type: msgError, Error: err.Error()})
			return
		}
		s.rotate(ctx, false)
		s.sendStats(ctx)
	case msgReset:
		s.analyzer.Reset()
		s.rotate(ctx, false)
		s.sendStats(ctx)
	case msgStats:
		s.sendStats(ctx)
	case msgEnd:
		s.rotate(ctx, true)
		s.analyzer.Reset()
	}
}

func (s *analyzeSession) sendStats(ctx context.Context) {
	stats := s.analyzer.Stats()
	s.send(ctx, serverMessage{Type: msgStats, Stats: &stats})
}

// rotate logs the current session and starts a new one. With announce set the
// finished summary is sent to the client even when it is empty.
func (s *analyzeSession) rotate(ctx context.Context, announce bool) {
	rec := s.save()
	s.tracker = session.NewTracker(s.analyzer.Exercise(), session.OriginBrowser, nil)
	if announce {
		s.send(ctx, serverMessage{Type: msgSummary, Summary: rec})
	}
}

// finish logs whatever is left when the connection closes.
func (s *analyzeSession) finish() {
	s.save()
}

func (s *analyzeSession) save() *session.Record {
	rec := s.tracker.Finish()
	if rec.Frames == 0 || s.store == nil {
		return rec
	}
	if err := s.store.Sessions().Create(rec); err != nil {
		s.logger.Error("failed to save session", "id", rec.ID, "error", err)
		return rec
	}
	s.logger.Info("session saved", "id", rec.ID, "exercise", rec.Exercise, "reps", rec.Reps, "origin", rec.Origin)
	return rec
}

func (s *analyzeSession) send(ctx context.Context, msg serverMessage) {
	select {
	case s.out <- msg:
	case <-ctx.Done():
	}
}

// write is the connection's only writer.
func (s *analyzeSession) write(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write error", "error", err)
				s.cancel()
				s.conn.Close()
				return
			}
		}
	}
}
