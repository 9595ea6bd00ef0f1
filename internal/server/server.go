// Package server provides the HTTP server for the datilo recognition service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ayusman/datilo/internal/app"
	"github.com/ayusman/datilo/internal/capture"
	"github.com/ayusman/datilo/internal/classifier"
	"github.com/ayusman/datilo/internal/features"
	"github.com/ayusman/datilo/internal/observe"
	"github.com/ayusman/datilo/internal/server/api"
	"github.com/ayusman/datilo/internal/session"
	"github.com/ayusman/datilo/internal/store"
)

// SpeechStatus reports on the speech worker.
type SpeechStatus interface {
	LastError() string
	Pending() int
}

// PipelineStats reports on the capture pipeline.
type PipelineStats interface {
	Stats() app.Stats
}

// Config holds the server configuration. Every field is optional; routes
// whose dependencies are missing are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *session.Controller
	Frames    *capture.FrameBuffer
	// Model is the loaded classifier artifact, nil when running degraded.
	Model    *classifier.Artifact
	Scheme   features.Scheme
	Speech   SpeechStatus
	Pipeline PipelineStats

	Metrics *observe.Metrics
	// MetricsHandler serves /metrics.
	MetricsHandler http.Handler
}

// Server represents the HTTP server for the datilo service.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()

	s.handler = s.mux
	if config.Metrics != nil {
		s.handler = observe.Middleware(config.Metrics)(s.mux)
	}
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session, s.config.Store)
		for _, path := range sessionHandler.Paths() {
			s.mux.Handle(path, sessionHandler)
		}
		s.mux.Handle("/api/ws", NewSnapshotHandler(s.config.Session))
	}

	if s.config.Store != nil {
		samplesHandler := api.NewSamplesHandler(s.config.Store, s.config.Scheme)
		s.mux.Handle("/api/samples", samplesHandler)
		s.mux.Handle("/api/samples/", samplesHandler)
		s.mux.Handle("/api/utterances", api.NewUtterancesHandler(s.config.Store))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.MetricsHandler != nil {
		s.mux.Handle("/metrics", s.config.MetricsHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) modelLoaded() bool {
	return s.config.Session != nil && s.config.Session.ModelLoaded()
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	ModelLoaded bool   `json:"model_loaded"`
}

// handleHealth handles GET requests to /api/health. The service is
// "degraded" while no classifier is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.start).Round(time.Second).String(),
		ModelLoaded: s.modelLoaded(),
	}
	if !response.ModelLoaded {
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response)
}

type modelStatus struct {
	Path      string    `json:"path"`
	Scheme    string    `json:"scheme"`
	Classes   []string  `json:"classes"`
	Accuracy  float64   `json:"accuracy"`
	Samples   int       `json:"samples"`
	TrainedAt time.Time `json:"trained_at"`
}

type speechStatus struct {
	LastError string `json:"last_error,omitempty"`
	Pending   int    `json:"pending"`
}

type statusResponse struct {
	Model    *modelStatus      `json:"model"`
	Session  *session.Snapshot `json:"session,omitempty"`
	Speech   *speechStatus     `json:"speech,omitempty"`
	Pipeline *app.Stats        `json:"pipeline,omitempty"`
}

// handleStatus handles GET requests to /api/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var response statusResponse
	if m := s.config.Model; m != nil {
		response.Model = &modelStatus{
			Path:      m.Path,
			Scheme:    string(m.Scheme),
			Classes:   m.Classes,
			Accuracy:  m.Accuracy,
			Samples:   m.Samples,
			TrainedAt: m.TrainedAt,
		}
	}
	if s.config.Session != nil {
		snap := s.config.Session.Snapshot()
		response.Session = &snap
	}
	if s.config.Speech != nil {
		response.Speech = &speechStatus{
			LastError: s.config.Speech.LastError(),
			Pending:   s.config.Speech.Pending(),
		}
	}
	if s.config.Pipeline != nil {
		stats := s.config.Pipeline.Stats()
		response.Pipeline = &stats
	}

	writeJSON(w, http.StatusOK, response)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	slog.Info("http server listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Streams and websockets do not end on their own.
		srv.Close()
	}
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}
