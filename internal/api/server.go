// Package api exposes the research pipeline over HTTP: run submission,
// per-run SSE event streams, and report history.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/memory"
	"github.com/sells-group/research-agent/internal/model"
)

// pingInterval is how long an SSE stream may sit idle before a keepalive.
const pingInterval = 60 * time.Second

// Runner executes a submitted run, reporting progress to the sink. The
// agent runner satisfies this; tests substitute a scripted one.
type Runner interface {
	Run(ctx context.Context, run *model.Run, maxIterations int, sink event.Sink) error
}

// Server holds the handler dependencies.
type Server struct {
	runner Runner
	broker event.Broker
	memory memory.Store
}

// NewServer wires the API over a runner, an event broker, and the long-term
// store.
func NewServer(runner Runner, broker event.Broker, mem memory.Store) *Server {
	return &Server{runner: runner, broker: broker, memory: mem}
}

// Router builds the chi router with the full route set.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/research", s.handleResearch)
		r.Get("/research/stream/{runID}", s.handleStream)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryItem)
	})

	return r
}
