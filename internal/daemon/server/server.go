// Package server provides the HTTP server for the inbox daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grovetools/inbox/internal/daemon/engine"
	"github.com/grovetools/inbox/pkg/api"
	"github.com/grovetools/inbox/pkg/badge"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server manages the daemon's HTTP server over a Unix socket, and
// optionally a TCP listener for browser clients. Browser pages on another
// origin reach /api/ws only when their origin is allowed.
type Server struct {
	logger         *logrus.Entry
	server         *http.Server
	tcpServer      *http.Server
	engine         *engine.Engine
	visibility     *visibility.Tracker
	runningConfig  *api.RunningConfig

	originsMu      sync.RWMutex
	allowedOrigins []string
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	return &Server{
		logger: logger,
	}
}

// SetEngine sets the collector engine for the server.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetVisibility sets the tracker that consumers update through /api/visibility.
func (s *Server) SetVisibility(t *visibility.Tracker) {
	s.visibility = t
}

// SetAllowedOrigins sets the cross-origin pages, such as
// "https://lemmy.ml", that may open /api/ws. "*" allows any origin.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.originsMu.Lock()
	defer s.originsMu.Unlock()
	s.allowedOrigins = origins
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *api.RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the daemon's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireEngine)
		r.Get("/counts", s.handleGetCounts)
		r.Get("/slots", s.handleGetSlots)
		r.Get("/stream", s.handleStreamCounts)
		r.Get("/ws", s.handleWebSocket)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/visibility", s.handleGetVisibility)
		r.Post("/visibility", s.handleSetVisibility)
		r.Get("/config", s.handleGetConfig)
	})

	return h2c.NewHandler(r, &http2.Server{})
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	// Set restrictive permissions on socket
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler: s.Handler(),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ListenTCP serves the same routes on a TCP address. It blocks until the
// server stops or fails.
func (s *Server) ListenTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.tcpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithField("addr", listener.Addr().String()).Info("Daemon listening on TCP")
	if err := s.tcpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	var firstErr error
	if s.tcpServer != nil {
		firstErr = s.tcpServer.Shutdown(ctx)
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) requireEngine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.engine == nil {
			http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) currentVisibility() visibility.State {
	if s.visibility == nil {
		return visibility.Visible
	}
	return s.visibility.State()
}

func (s *Server) counts() api.Counts {
	svc := s.engine.Inbox()
	counts := svc.Counts()
	viewer := svc.Viewer()
	return api.Counts{
		Counts:     counts,
		Viewer:     viewer,
		Badges:     badge.For(viewer, counts),
		Visibility: s.currentVisibility(),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleGetCounts returns the derived totals and the badges to show.
func (s *Server) handleGetCounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.counts())
}

// handleGetSlots returns the raw request state of each source.
func (s *Server) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.Inbox().Slots())
}

// handleRefresh runs a fetch cycle now, regardless of visibility, and
// returns the counts it produced. The cycle writes shared slots, so it
// outlives a client that hangs up.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.engine.Inbox().FetchUnreadCounts(context.WithoutCancel(r.Context()))
	writeJSON(w, s.counts())
}

// handleGetVisibility returns the current visibility state.
func (s *Server) handleGetVisibility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, api.Visibility{State: s.currentVisibility()})
}

// handleSetVisibility lets a consumer mark itself visible or hidden.
func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	if s.visibility == nil {
		http.Error(w, "visibility not configurable", http.StatusServiceUnavailable)
		return
	}

	var req api.Visibility
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	state, err := visibility.Parse(string(req.State))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.visibility.Set(state) {
		s.logger.WithField("state", state).Info("Visibility changed")
	}
	writeJSON(w, api.Visibility{State: state})
}

// handleStreamCounts provides Server-Sent Events (SSE) for count updates.
// Clients can subscribe to this endpoint to receive updates whenever a source settles.
func (s *Server) handleStreamCounts(w http.ResponseWriter, r *http.Request) {
	// Ensure the connection supports flushing
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	svc := s.engine.Inbox()
	ch := svc.Subscribe()
	defer svc.Unsubscribe(ch)

	// Send initial ping to confirm connection
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	// Send current counts immediately so client has data right away
	if data, err := json.Marshal(s.counts()); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(s.counts())
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			// SSE format: "data: {json}\n\n"
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.runningConfig)
}
