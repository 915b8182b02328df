package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nextbus/internal/translink"
)

// SSEBoard streams a stop's board as Server-Sent Events. Each rebuild is sent
// as a "board" event, or an "error" event carrying {"error": msg} when the
// stop lookup fails. The stream stays open until the client leaves.
func (h *Handler) SSEBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	h.sendBoardEvent(ctx, w, flusher, id)

	ticker := time.NewTicker(h.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.sendBoardEvent(ctx, w, flusher, id)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) sendBoardEvent(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, stopID string) {
	event := "board"
	var payload any
	b, err := h.boards.Build(ctx, stopID)
	if err != nil {
		var apiErr *translink.Error
		if !errors.As(err, &apiErr) {
			h.logger.Error("building SSE board", "stop", stopID, "error", err)
		}
		event, payload = "error", errorBody{Error: err.Error()}
	} else {
		payload = b
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		h.logger.Error("encoding SSE board", "error", err)
		return
	}

	// json.Encoder output is a single line plus newline
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", bytes.TrimRight(buf.Bytes(), "\n"))
	flusher.Flush()
}
