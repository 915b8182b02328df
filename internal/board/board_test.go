package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"nextbus/internal/model"
	"nextbus/internal/realtime"
)

// fakeRTTI serves canned data; a non-nil error fails the matching call.
type fakeRTTI struct {
	stop      *model.Stop
	estimates []model.ArrivalEstimate
	vehicles  []model.VehicleLocation
	stopErr   error
	estErr    error
	busErr    error
}

func (f *fakeRTTI) FetchStop(ctx context.Context, stopID string) (*model.Stop, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	s := *f.stop
	return &s, nil
}

func (f *fakeRTTI) FetchArrivalEstimates(ctx context.Context, stop *model.Stop) error {
	if f.estErr != nil {
		return f.estErr
	}
	stop.AddEstimates(f.estimates...)
	return nil
}

func (f *fakeRTTI) FetchVehicleLocations(ctx context.Context, stop *model.Stop) error {
	if f.busErr != nil {
		return f.busErr
	}
	stop.AddVehicles(f.vehicles...)
	return nil
}

func testStop() *model.Stop {
	return &model.Stop{
		Code:     "61935",
		Name:     "W 4TH AVE FS BALACLAVA ST",
		Location: model.Location{Lat: 49.268, Lon: -123.17},
		Routes:   []string{"004"},
	}
}

func TestBuild(t *testing.T) {
	rtti := &fakeRTTI{
		stop: testStop(),
		estimates: []model.ArrivalEstimate{
			{Route: "004", Countdown: 4},
			{Route: "004", Countdown: 19},
		},
		vehicles: []model.VehicleLocation{
			{Vehicle: "far", Heading: "WEST", Location: model.Location{Lat: 49.263, Lon: -123.10}},
			{Vehicle: "near", Heading: "EAST", Location: model.Location{Lat: 49.268, Lon: -123.16}},
		},
	}
	alerts := realtime.NewStore()
	alerts.SetAlerts([]realtime.Alert{{ID: "detour", RouteIDs: []string{"004"}}, {ID: "elsewhere", StopIDs: []string{"1"}}})

	b := NewBuilder(rtti, alerts)
	b.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	board, err := b.Build(context.Background(), "61935")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(board.Stop.Estimates) != 2 || board.Stop.Estimates[1].Countdown != 19 {
		t.Errorf("estimates = %+v", board.Stop.Estimates)
	}
	if len(board.Stop.Vehicles) != 0 {
		t.Errorf("stop vehicles should be moved to the board, got %d", len(board.Stop.Vehicles))
	}
	if len(board.Vehicles) != 2 || board.Vehicles[0].Vehicle != "near" {
		t.Fatalf("vehicles not nearest first: %+v", board.Vehicles)
	}
	if board.Vehicles[0].HeadingText != "Eastbound" {
		t.Errorf("heading = %q", board.Vehicles[0].HeadingText)
	}
	if board.Vehicles[0].DistanceMeters >= board.Vehicles[1].DistanceMeters {
		t.Error("distances out of order")
	}
	if len(board.Alerts) != 1 || board.Alerts[0].ID != "detour" {
		t.Errorf("alerts = %+v", board.Alerts)
	}
	if len(board.Problems) != 0 {
		t.Errorf("problems = %v", board.Problems)
	}
}

func TestBuild_StopFailureFailsBoard(t *testing.T) {
	want := errors.New("offline")
	b := NewBuilder(&fakeRTTI{stopErr: want}, nil)
	if _, err := b.Build(context.Background(), "61935"); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestBuild_PartialFailure(t *testing.T) {
	rtti := &fakeRTTI{
		stop:      testStop(),
		estimates: []model.ArrivalEstimate{{Route: "004"}},
		busErr:    errors.New("Unable to connect to Translink at this time"),
	}
	board, err := NewBuilder(rtti, nil).Build(context.Background(), "61935")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(board.Stop.Estimates) != 1 {
		t.Errorf("estimates = %+v", board.Stop.Estimates)
	}
	if board.Problems["buses"] != "Unable to connect to Translink at this time" {
		t.Errorf("problems = %v", board.Problems)
	}
	if _, ok := board.Problems["estimates"]; ok {
		t.Error("estimates should not be reported as a problem")
	}
	if board.Alerts != nil {
		t.Error("alerts should be nil without a store")
	}
}

func TestExpandHeading(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"NORTH", "Northbound"},
		{"south", "Southbound"},
		{"EB", "Eastbound"},
		{"WEST", "Westbound"},
		{"", ""},
		{"Loop", "Loop"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExpandHeading(tt.input); got != tt.want {
				t.Errorf("ExpandHeading(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
