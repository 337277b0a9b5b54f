// Package server sets up the HTTP server, router, and route definitions.
//
// This package is the wiring layer — it connects the execution engine to the
// transport and owns the server lifecycle. The engine itself has no network
// surface; everything HTTP-shaped stops here.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/fluxflow/internal/engine"
	"github.com/sakif/fluxflow/internal/handler"
	"github.com/sakif/fluxflow/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server represents the HTTP server and its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
}

// New creates a new Server wired to the given execution engine.
func New(cfg Config, logger *slog.Logger, exec engine.Executor) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(exec)
	return s
}

// setupRoutes configures all middleware and route handlers.
//
// Routes:
//
//	GET  /health          → liveness probe
//	GET  /api/languages   → supported language listing
//	POST /api/execute     → run code
func (s *Server) setupRoutes(exec engine.Executor) {
	// Global middleware, in order: request ID for tracing, real client IP
	// behind proxies, panic recovery, then our request log.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/health", handler.HandleHealth)

	executeHandler := handler.NewExecuteHandler(exec, s.logger)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/languages", handler.HandleLanguages)
		r.Post("/execute", executeHandler.HandleExecute)
	})
}

// Start starts the HTTP server and blocks until shutdown.
//
// Graceful shutdown: on SIGINT/SIGTERM stop accepting connections and give
// in-flight requests 30 seconds to finish. Thirty seconds comfortably covers
// the 5 second execution budget of any request still running.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
