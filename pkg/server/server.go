// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes debates over HTTP.
//
// Routes:
//   - GET  /                                 service banner
//   - GET  /health                           liveness
//   - GET  /metrics                          Prometheus (when enabled)
//   - GET  /api/providers/                   provider ids
//   - GET  /api/providers/available          availability and models
//   - GET  /api/providers/{provider}/models  models of one provider
//   - POST /api/debate/start                 create a debate
//   - POST /api/debate/import                restore an exported debate
//   - GET  /api/debate/{id}                  debate state
//   - GET  /api/debate/{id}/export           export payload
//   - POST /api/debate/{id}/next-turn        trigger the next manual turn
//   - POST /api/debate/{id}/pause|resume|stop
//   - GET  /api/debate/{id}/ws               WebSocket event stream
//   - GET  /api/debate/{id}/events           Server-Sent Events stream
//
// A stream drives the debate while a client is connected. When the client
// goes away the debate pauses and a new connection continues it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	debater "github.com/kadirpekel/debater"
	"github.com/kadirpekel/debater/pkg/config"
	"github.com/kadirpekel/debater/pkg/debate"
	"github.com/kadirpekel/debater/pkg/model"
	"github.com/kadirpekel/debater/pkg/observability"
	"github.com/kadirpekel/debater/pkg/provider"
)

// Providers is the provider catalog the API reads from.
// *provider.Registry implements it.
type Providers interface {
	IDs() []string
	Availability(ctx context.Context) map[string]provider.Status
	Models(ctx context.Context, id string) ([]model.ModelInfo, error)
}

// Server is the debater HTTP server.
type Server struct {
	cfg       config.ServerConfig
	debates   *debate.Store
	providers Providers

	observability *observability.Manager
	upgrader      websocket.Upgrader
	writeTimeout  time.Duration

	server *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithObservability enables request tracing, metrics and /metrics.
func WithObservability(obs *observability.Manager) Option {
	return func(s *Server) {
		s.observability = obs
	}
}

// WithStreamWriteTimeout bounds a single write to a stream client.
func WithStreamWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// New creates a Server. cfg is expected to have defaults applied.
func New(cfg config.ServerConfig, debates *debate.Store, providers Providers, opts ...Option) *Server {
	s := &Server{
		cfg:          cfg,
		debates:      debates,
		providers:    providers,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Observability wraps everything so all requests are traced and measured.
	if s.observability != nil {
		r.Use(observability.HTTPMiddleware(s.observability.Tracer("github.com/kadirpekel/debater/pkg/server"), s.observability.Metrics()))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	if s.observability.MetricsEnabled() {
		r.Method(http.MethodGet, "/metrics", s.observability.MetricsHandler())
	}

	r.Route("/api", func(r chi.Router) {
		if rl := s.cfg.RateLimit; rl.RequestsPerSecond > 0 {
			r.Use(newRateLimiter(rl.RequestsPerSecond, rl.Burst).middleware)
		}

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", s.handleListProviders)
			r.Get("/available", s.handleAvailableProviders)
			r.Get("/{provider}/models", s.handleListModels)
		})

		r.Route("/debate", func(r chi.Router) {
			r.Get("/", s.handleListDebates)
			r.Post("/start", s.handleStartDebate)
			r.Post("/import", s.handleImportDebate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDebate)
				r.Get("/export", s.handleExportDebate)
				r.Post("/next-turn", s.handleNextTurn)
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
				r.Post("/stop", s.handleStop)
				r.Get("/ws", s.handleWebSocket)
				r.Get("/events", s.handleEvents)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("HTTP server starting", "address", s.cfg.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops every debate so open streams finish, then closes the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.debates.StopAll()
	if s.server == nil {
		return nil
	}
	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// Address returns the listen address.
func (s *Server) Address() string {
	return s.cfg.Address()
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "AI Debater API", "version": debater.Version})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
