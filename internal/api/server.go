// Package api exposes the query surface over HTTP.
package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"crypto-tracker/internal/analytics"
	"crypto-tracker/internal/observability"
	"crypto-tracker/internal/storage"
	"crypto-tracker/internal/stream"
)

// Server answers read queries against the store and analytics engine.
type Server struct {
	store  storage.Store
	engine *analytics.Engine
	hub    *stream.Hub
	logger *log.Logger
}

// ServerOptions contains configuration for creating a Server.
type ServerOptions struct {
	Store  storage.Store
	Engine *analytics.Engine

	// Hub, if set, serves the /ws live feed.
	Hub *stream.Hub

	Logger *log.Logger
}

// NewServer creates a new Server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		store:  opts.Store,
		engine: opts.Engine,
		hub:    opts.Hub,
		logger: logger,
	}
}

// Router builds the HTTP route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", observability.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/coins", s.handleListCoins)
		r.Get("/coins/{coinID}/price", s.handlePrice)
		r.Get("/coins/{coinID}/history", s.handleHistory)
		r.Get("/analytics/trending", s.handleTrending)
		r.Get("/analytics/summary", s.handleSummary)
	})

	if s.hub != nil {
		r.Get("/ws", s.hub.ServeHTTP)
	}

	return r
}
