// Package server provides the HTTP server for sign2me practice sessions.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/sign2me/internal/pose"
	"github.com/ayusman/sign2me/internal/server/api"
	"github.com/ayusman/sign2me/internal/session"
	"github.com/ayusman/sign2me/pkg/logger"
	"github.com/ayusman/sign2me/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Previewer supplies the latest camera frame as JPEG.
type Previewer interface {
	Preview() ([]byte, bool)
}

// Camera is the server-side camera source.
type Camera interface {
	Previewer
	Running() bool
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Manager   *session.Manager
	Settings  api.SettingsStore
	// Feed receives frames posted to /api/frames.
	Feed *pose.Feed
	// Camera, when set, backs /api/stream and is reported by /api/health.
	Camera  Camera
	Metrics *metrics.Manager
	Logger  logger.Logger
}

// Server represents the HTTP server for the practice application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	log     logger.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		log:    config.Logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = metricsMiddleware(config.Metrics, s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Manager != nil {
		sessions := api.NewSessionHandler(s.config.Manager, s.log.Named("api"))
		ws := NewSessionSocket(s.config.Manager, s.log.Named("ws"))

		// /api/sessions/{id}/ws upgrades; everything else is JSON.
		router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/ws") {
				ws.ServeHTTP(w, r)
				return
			}
			sessions.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/sessions", router)
		s.mux.Handle("/api/sessions/", router)
		s.mux.Handle("/api/letters", api.NewLettersHandler(s.config.Manager))
	}

	if s.config.Settings != nil {
		settings := api.NewSettingsHandler(s.config.Settings, s.log.Named("api"))
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}

	if s.config.Feed != nil {
		s.mux.Handle("/api/frames", NewFrameHandler(s.config.Feed))
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	}
	if s.config.Manager != nil {
		response["sessions"] = len(s.config.Manager.IDs())
	}
	if s.config.Camera != nil {
		response["camera"] = "stopped"
		if s.config.Camera.Running() {
			response["camera"] = "running"
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// WriteTimeout stays unset; the MJPEG stream and WebSocket are long-lived.
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info(ctx, "shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
