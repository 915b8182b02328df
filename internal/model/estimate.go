package model

import "strings"

// Adherence is how a predicted arrival relates to the timetable.
type Adherence string

const (
	OnTime    Adherence = "on_time"
	Delayed   Adherence = "delayed"
	Ahead     Adherence = "ahead"
	Scheduled Adherence = "scheduled" // no realtime data, timetable only
)

// ParseAdherence maps TransLink's ScheduleStatus codes (" ", "-", "+", "*")
// and their spelled out names to an Adherence. Unknown values are OnTime.
func ParseAdherence(s string) Adherence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "-", "delayed", "late":
		return Delayed
	case "+", "ahead", "early":
		return Ahead
	case "*", "scheduled":
		return Scheduled
	default:
		return OnTime
	}
}

// Label is a short human readable form of the adherence.
func (a Adherence) Label() string {
	switch a {
	case Delayed:
		return "Delayed"
	case Ahead:
		return "Ahead"
	case Scheduled:
		return "Scheduled"
	default:
		return "On time"
	}
}

// ArrivalEstimate is a predicted wait for a bus on a route at a stop.
type ArrivalEstimate struct {
	Route       string    `json:"route"`
	Destination string    `json:"destination"`
	Countdown   int       `json:"countdown"` // minutes
	Status      Adherence `json:"status"`
	Cancelled   bool      `json:"cancelled,omitempty"`
}

// VehicleLocation is a realtime position report for a bus.
type VehicleLocation struct {
	Vehicle     string   `json:"vehicle"`
	Route       string   `json:"route"`
	Destination string   `json:"destination,omitempty"`
	Heading     string   `json:"heading"` // "NORTH", "WEST", ...
	Location    Location `json:"location"`
}
