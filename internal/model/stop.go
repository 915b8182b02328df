// Package model holds the stop, arrival estimate and vehicle location types
// populated from TransLink responses.
package model

import "fmt"

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (l Location) String() string {
	return fmt.Sprintf("%.5f,%.5f", l.Lat, l.Lon)
}

// Stop is a physical transit stop identified by its five digit stop number.
// Estimates and Vehicles are filled in by enrichment calls; the owner of the
// Stop is responsible for serialising writers.
type Stop struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
	OnStreet string   `json:"on_street,omitempty"`
	AtStreet string   `json:"at_street,omitempty"`
	City     string   `json:"city,omitempty"`
	Routes   []string `json:"routes,omitempty"`

	Estimates []ArrivalEstimate `json:"estimates,omitempty"`
	Vehicles  []VehicleLocation `json:"vehicles,omitempty"`
}

// NewStop returns a stop with only its code set, ready to be enriched.
func NewStop(code string) *Stop {
	return &Stop{Code: code}
}

// AddEstimates appends a parsed batch of estimates in one step.
func (s *Stop) AddEstimates(estimates ...ArrivalEstimate) {
	s.Estimates = append(s.Estimates, estimates...)
}

// AddVehicles appends a parsed batch of vehicle locations in one step.
func (s *Stop) AddVehicles(vehicles ...VehicleLocation) {
	s.Vehicles = append(s.Vehicles, vehicles...)
}

// ClearEstimates drops all estimates, keeping the stop's identity.
func (s *Stop) ClearEstimates() {
	s.Estimates = nil
}

// ClearVehicles drops all vehicle locations.
func (s *Stop) ClearVehicles() {
	s.Vehicles = nil
}
