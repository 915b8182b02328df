// Package server wires the JSON handlers, middleware and /metrics onto an
// http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nextbus/internal/handler"
	"nextbus/internal/metrics"
)

// Server is the HTTP server for nextbus.
type Server struct {
	mux    *http.ServeMux
	port   int
	logger *slog.Logger
}

// New creates a Server with all routes registered. m may be nil, in which
// case /metrics is not served.
func New(port int, h *handler.Handler, m *metrics.Collector, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Stops
	mux.HandleFunc("GET /api/stops/{id}", h.StopBoard)
	mux.HandleFunc("GET /api/stops/{id}/info", h.StopInfo)
	mux.HandleFunc("GET /api/stops/{id}/estimates", h.Estimates)
	mux.HandleFunc("GET /api/stops/{id}/buses", h.Buses)
	mux.HandleFunc("GET /api/stops/{id}/alerts", h.StopAlerts)

	// Alerts
	mux.HandleFunc("GET /api/alerts", h.Alerts)

	// Saved stops
	mux.HandleFunc("GET /api/saved", h.SavedStops)
	mux.HandleFunc("PUT /api/saved/{id}", h.SaveStop)
	mux.HandleFunc("DELETE /api/saved/{id}", h.RemoveSaved)

	// SSE
	mux.HandleFunc("GET /sse/stops/{id}", h.SSEBoard)

	mux.HandleFunc("GET /healthz", h.Health)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return &Server{mux: mux, port: port, logger: logger}
}

// Handler returns the routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
