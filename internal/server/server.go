// Package server provides the HTTP and WebSocket server for formcheck.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/formcheck/internal/analysis"
	"github.com/ayusman/formcheck/internal/server/api"
	"github.com/ayusman/formcheck/internal/store"
)

// Live is the camera session exposed under /api/live.
type Live interface {
	api.LiveController
	LatestSource
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Live enables the live endpoints when set.
	Live Live
	// Analysis configures the analyzer of each /api/analyze connection.
	Analysis analysis.Config
	// BroadcastInterval is how often /api/live pushes new results.
	BroadcastInterval time.Duration
	Logger            *slog.Logger
}

// Server represents the HTTP server for the formcheck application.
type Server struct {
	config  Config
	logger  *slog.Logger
	mux     *http.ServeMux
	start   time.Time
	analyze *AnalyzeHandler
	stream  *LiveStreamHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/exercises", api.NewExerciseHandler())
	s.analyze = NewAnalyzeHandler(s.config.Analysis, s.config.Store, s.logger)
	s.mux.Handle("/api/analyze", s.analyze)

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Live != nil {
		s.stream = NewLiveStreamHandler(s.config.Live, s.config.BroadcastInterval, s.logger)
		s.mux.Handle("/api/live", s.stream)
		s.mux.Handle("/api/live/", api.NewLiveHandler(s.config.Live))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
		"live":   s.config.Live != nil,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close stops background work started by the server and ends every analyze
// session, logging what they recorded.
func (s *Server) Close() {
	if s.stream != nil {
		s.stream.Close()
	}
	s.analyze.Close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
