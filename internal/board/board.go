// Package board assembles a departure board for one stop: stop details,
// arrival estimates, nearby buses and service alerts.
package board

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"nextbus/internal/geo"
	"nextbus/internal/model"
	"nextbus/internal/realtime"
)

// Fetcher is the part of translink.Client the board needs.
type Fetcher interface {
	FetchStop(ctx context.Context, stopID string) (*model.Stop, error)
	FetchArrivalEstimates(ctx context.Context, stop *model.Stop) error
	FetchVehicleLocations(ctx context.Context, stop *model.Stop) error
}

// Vehicle is a bus position annotated with its distance from the stop.
type Vehicle struct {
	model.VehicleLocation
	HeadingText    string  `json:"heading_text"`
	DistanceMeters float64 `json:"distance_m"`
	Distance       string  `json:"distance"`
}

// Board is everything shown for a stop. Problems maps a section
// ("estimates", "buses") to the message of the error that left it empty.
type Board struct {
	Stop      model.Stop        `json:"stop"`
	Vehicles  []Vehicle         `json:"vehicles"`
	Alerts    []realtime.Alert  `json:"alerts"`
	Problems  map[string]string `json:"problems,omitempty"`
	Generated time.Time         `json:"generated"`
}

// Builder fetches boards. Alerts may be nil.
type Builder struct {
	RTTI   Fetcher
	Alerts *realtime.Store
	now    func() time.Time
}

func NewBuilder(rtti Fetcher, alerts *realtime.Store) *Builder {
	return &Builder{RTTI: rtti, Alerts: alerts, now: time.Now}
}

// Build fetches the stop, then its estimates and buses in parallel. A failed
// stop lookup fails the board; failed estimates or buses are reported in
// Problems.
func (b *Builder) Build(ctx context.Context, stopID string) (*Board, error) {
	stop, err := b.RTTI.FetchStop(ctx, stopID)
	if err != nil {
		return nil, err
	}

	// Each request enriches its own scratch stop so the two never share a writer.
	estimates := model.NewStop(stop.Code)
	buses := model.NewStop(stop.Code)
	var estErr, busErr error

	var wg conc.WaitGroup
	wg.Go(func() { estErr = b.RTTI.FetchArrivalEstimates(ctx, estimates) })
	wg.Go(func() { busErr = b.RTTI.FetchVehicleLocations(ctx, buses) })
	wg.Wait()

	stop.AddEstimates(estimates.Estimates...)
	stop.AddVehicles(buses.Vehicles...)

	now := b.now()
	board := &Board{
		Stop:      *stop,
		Vehicles:  vehiclesByDistance(stop),
		Generated: now,
	}
	board.Stop.ClearVehicles() // listed once, in Vehicles
	if estErr != nil {
		board.problem("estimates", estErr)
	}
	if busErr != nil {
		board.problem("buses", busErr)
	}
	if b.Alerts != nil {
		board.Alerts = b.Alerts.AlertsForStop(stop.Code, stop.Routes, now)
	}
	return board, nil
}

func (b *Board) problem(section string, err error) {
	if b.Problems == nil {
		b.Problems = make(map[string]string)
	}
	b.Problems[section] = err.Error()
}

// vehiclesByDistance orders the stop's buses nearest first.
func vehiclesByDistance(stop *model.Stop) []Vehicle {
	out := make([]Vehicle, 0, len(stop.Vehicles))
	for _, v := range stop.Vehicles {
		d := geo.Distance(stop.Location, v.Location)
		out = append(out, Vehicle{
			VehicleLocation: v,
			HeadingText:     ExpandHeading(v.Heading),
			DistanceMeters:  d,
			Distance:        geo.FormatDistance(d),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out
}

// ExpandHeading turns RTTI directions ("WEST", "NB") into "Westbound".
// Unknown values are returned as is.
func ExpandHeading(h string) string {
	switch strings.ToUpper(strings.TrimSpace(h)) {
	case "NORTH", "NB":
		return "Northbound"
	case "SOUTH", "SB":
		return "Southbound"
	case "EAST", "EB":
		return "Eastbound"
	case "WEST", "WB":
		return "Westbound"
	default:
		return h
	}
}
