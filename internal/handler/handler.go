// Package handler serves stop boards, service alerts and saved stops as JSON.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nextbus/internal/board"
	"nextbus/internal/metrics"
	"nextbus/internal/realtime"
	"nextbus/internal/storage"
	"nextbus/internal/translink"
)

const (
	// DefaultRefresh is how often a board stream is rebuilt.
	DefaultRefresh = 30 * time.Second
	// DefaultBoardTTL is how long a built board is reused.
	DefaultBoardTTL = 15 * time.Second
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	rtti    board.Fetcher
	builder *board.Builder
	boards  *board.Cache
	db      *storage.DB
	rt      *realtime.Store
	metrics *metrics.Collector
	logger  *slog.Logger
	refresh time.Duration
}

// New creates a Handler. rt and m may be nil.
func New(rtti board.Fetcher, db *storage.DB, rt *realtime.Store, m *metrics.Collector, logger *slog.Logger) *Handler {
	builder := board.NewBuilder(rtti, rt)
	return &Handler{
		rtti:    rtti,
		builder: builder,
		boards:  board.NewCache(builder, DefaultBoardTTL),
		db:      db,
		rt:      rt,
		metrics: m,
		logger:  logger,
		refresh: DefaultRefresh,
	}
}

// SetRefresh changes the board stream interval.
func (h *Handler) SetRefresh(d time.Duration) {
	if d > 0 {
		h.refresh = d
	}
}

// SetBoardTTL changes how long boards are reused; zero disables reuse.
func (h *Handler) SetBoardTTL(d time.Duration) {
	h.boards = board.NewCache(h.builder, d)
}

// Health reports liveness. It never calls upstream.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.rt != nil {
		if updated := h.rt.Updated(); !updated.IsZero() {
			resp["alerts_updated"] = updated
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err to a status. TransLink failures keep their user-facing
// message; anything else is logged and reported as an internal error.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *translink.Error
	if errors.As(err, &apiErr) {
		writeJSON(w, statusFor(apiErr.Kind), errorBody{Error: apiErr.Error()})
		return
	}
	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func statusFor(k translink.Kind) int {
	switch k {
	case translink.Unreachable, translink.Timeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
