package handler

import (
	"errors"
	"net/http"
	"time"

	"nextbus/internal/realtime"
	"nextbus/internal/storage"
)

type alertsResponse struct {
	Updated time.Time        `json:"updated"`
	Alerts  []realtime.Alert `json:"alerts"`
}

// Alerts serves every known service alert.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	resp := alertsResponse{Alerts: []realtime.Alert{}}
	if h.rt != nil {
		resp.Updated = h.rt.Updated()
		resp.Alerts = append(resp.Alerts, h.rt.AllAlerts()...)
	}
	writeJSON(w, http.StatusOK, resp)
}

// StopAlerts serves the active alerts for a stop and the routes serving it.
// Routes come from the saved copy of the stop when there is one, so saved
// stops need no upstream call.
func (h *Handler) StopAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	resp := alertsResponse{Alerts: []realtime.Alert{}}
	if h.rt == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx := r.Context()
	var routes []string
	saved, err := h.db.SavedStop(ctx, id)
	switch {
	case err == nil:
		routes = saved.Stop.Routes
	case errors.Is(err, storage.ErrNotFound):
		stop, err := h.rtti.FetchStop(ctx, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		routes = stop.Routes
	default:
		h.writeError(w, r, err)
		return
	}

	resp.Updated = h.rt.Updated()
	resp.Alerts = append(resp.Alerts, h.rt.AlertsForStop(id, routes, time.Now())...)
	writeJSON(w, http.StatusOK, resp)
}
