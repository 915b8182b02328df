package handler

import (
	"errors"
	"net/http"
	"strings"

	"nextbus/internal/storage"
)

// SavedStops lists saved stops, oldest first.
func (h *Handler) SavedStops(w http.ResponseWriter, r *http.Request) {
	stops, err := h.db.SavedStops(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if stops == nil {
		stops = []storage.SavedStop{}
	}
	writeJSON(w, http.StatusOK, stops)
}

// SaveStop looks the stop up upstream and saves it. ?label= names it.
func (h *Handler) SaveStop(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	stop, err := h.rtti.FetchStop(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	label := strings.TrimSpace(r.URL.Query().Get("label"))
	if err := h.db.SaveStop(ctx, stop, label); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.SavedStopChanged("save")

	saved, err := h.db.SavedStop(ctx, stop.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// RemoveSaved forgets a saved stop.
func (h *Handler) RemoveSaved(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	err := h.db.RemoveStop(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.SavedStopChanged("remove")
	w.WriteHeader(http.StatusNoContent)
}
