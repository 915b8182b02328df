package handler

import (
	"net/http"
	"strings"

	"nextbus/internal/model"
)

// stopID reads the {id} path value. Stop numbers are five digits but the
// upstream decides what is valid, so only blanks are rejected here.
func stopID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing stop id"})
		return "", false
	}
	return id, true
}

// StopBoard serves the full board for a stop.
func (h *Handler) StopBoard(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	b, err := h.boards.Build(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// StopInfo serves the stop itself, without estimates or buses.
func (h *Handler) StopInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	stop, err := h.rtti.FetchStop(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

// Estimates serves the next arrivals at a stop.
func (h *Handler) Estimates(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	stop := model.NewStop(id)
	if err := h.rtti.FetchArrivalEstimates(r.Context(), stop); err != nil {
		h.writeError(w, r, err)
		return
	}
	estimates := stop.Estimates
	if estimates == nil {
		estimates = []model.ArrivalEstimate{}
	}
	writeJSON(w, http.StatusOK, estimates)
}

// Buses serves the buses currently serving a stop.
func (h *Handler) Buses(w http.ResponseWriter, r *http.Request) {
	id, ok := stopID(w, r)
	if !ok {
		return
	}
	stop := model.NewStop(id)
	if err := h.rtti.FetchVehicleLocations(r.Context(), stop); err != nil {
		h.writeError(w, r, err)
		return
	}
	vehicles := stop.Vehicles
	if vehicles == nil {
		vehicles = []model.VehicleLocation{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}
