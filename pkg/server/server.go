// Package server exposes the training store, session settings and chat
// pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/llms"
	"github.com/kadirpekel/corpus/pkg/rag"
	"github.com/kadirpekel/corpus/pkg/session"
)

// Server is the HTTP front of the service.
type Server struct {
	config   config.ServerConfig
	store    *rag.Store
	pipeline *rag.Pipeline
	settings *session.Settings
	llm      llms.Provider

	httpServer *http.Server
}

// New creates a server over the given components.
func New(cfg config.ServerConfig, store *rag.Store, pipeline *rag.Pipeline, settings *session.Settings, llm llms.Provider) *Server {
	s := &Server{
		config:   cfg,
		store:    store,
		pipeline: pipeline,
		settings: settings,
		llm:      llm,
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler builds the router. Exposed separately so tests can drive the
// full routing stack without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/trainings", func(r chi.Router) {
			r.Get("/", s.handleListTrainings)
			r.Post("/", s.handleCreateTraining)
			r.Put("/{category}", s.handleUpdateTraining)
			r.Delete("/{category}", s.handleDeleteTraining)
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", s.handleListModels)
			r.Get("/selected", s.handleSelectedModel)
			r.Post("/select", s.handleSelectModel)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/category", s.handleGetCategory)
			r.Put("/category", s.handleSetCategory)
			r.Get("/matches", s.handleGetMatches)
			r.Put("/matches", s.handleSetMatches)
			r.Get("/level", s.handleGetLevel)
			r.Put("/level", s.handleSetLevel)
		})

		r.Post("/chat", s.handleChat)
	})

	return r
}

// Start runs the HTTP listener until Stop is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
