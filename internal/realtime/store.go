// Package realtime keeps the latest TransLink GTFS-RT service alerts.
package realtime

import (
	"slices"
	"sync"
	"time"
)

// Period is an active window in unix seconds; zero means open-ended.
type Period struct {
	Start uint64 `json:"start,omitempty"`
	End   uint64 `json:"end,omitempty"`
}

// Alert represents a parsed service alert.
type Alert struct {
	ID         string   `json:"id"`
	HeaderText string   `json:"header"`
	DescText   string   `json:"description"`
	RouteIDs   []string `json:"routes,omitempty"`
	StopIDs    []string `json:"stops,omitempty"`
	Effect     string   `json:"effect"` // "NO_SERVICE", "DETOUR", ...
	Cause      string   `json:"cause"`
	Periods    []Period `json:"periods,omitempty"`
}

// ActiveAt reports whether the alert applies at t. Alerts without periods
// are always active.
func (a Alert) ActiveAt(t time.Time) bool {
	if len(a.Periods) == 0 {
		return true
	}
	now := uint64(t.Unix())
	for _, p := range a.Periods {
		if (p.Start == 0 || p.Start <= now) && (p.End == 0 || now < p.End) {
			return true
		}
	}
	return false
}

// Store holds realtime data in a thread-safe manner.
type Store struct {
	mu      sync.RWMutex
	alerts  []Alert
	updated time.Time
}

// NewStore creates an empty realtime store.
func NewStore() *Store {
	return &Store{}
}

// SetAlerts replaces all alerts.
func (s *Store) SetAlerts(alerts []Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
	s.updated = time.Now()
}

// Updated is when alerts were last replaced; zero before the first fetch.
func (s *Store) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// AlertsForStop returns active alerts naming the stop or any of the routes
// serving it.
func (s *Store) AlertsForStop(stopID string, routes []string, now time.Time) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Alert
	for _, a := range s.alerts {
		if !a.ActiveAt(now) {
			continue
		}
		if slices.Contains(a.StopIDs, stopID) || slices.ContainsFunc(a.RouteIDs, func(r string) bool {
			return slices.Contains(routes, r)
		}) {
			result = append(result, a)
		}
	}
	return result
}

// AllAlerts returns all alerts.
func (s *Store) AllAlerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
