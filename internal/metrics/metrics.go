// Package metrics exposes Prometheus counters for upstream TransLink traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can create as many as they like.
// A nil *Collector is valid and records nothing.
type Collector struct {
	reg *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec   // op, outcome
	UpstreamDuration *prometheus.HistogramVec // op

	AlertsActive      prometheus.Gauge
	AlertFetchErrors  prometheus.Counter
	SavedStopsChanges *prometheus.CounterVec // action: save|remove
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbus_upstream_requests_total",
			Help: "Requests made to the TransLink RTTI API by operation and outcome.",
		}, []string{"op", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nextbus_upstream_request_duration_seconds",
			Help:    "Round trip time of TransLink RTTI requests.",
			Buckets: prometheus.ExponentialBuckets(0.025, 2, 10),
		}, []string{"op"}),
		AlertsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nextbus_alerts_active",
			Help: "Service alerts in the last GTFS-RT snapshot.",
		}),
		AlertFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nextbus_alert_fetch_errors_total",
			Help: "Failed GTFS-RT alert feed fetches.",
		}),
		SavedStopsChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nextbus_saved_stop_changes_total",
			Help: "Saved stop additions and removals.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.UpstreamRequests, c.UpstreamDuration,
		c.AlertsActive, c.AlertFetchErrors, c.SavedStopsChanges,
	)
	return c
}

// ObserveRequest records one upstream request.
func (c *Collector) ObserveRequest(op, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(op, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetAlerts records the size of the latest alert snapshot.
func (c *Collector) SetAlerts(n int) {
	if c == nil {
		return
	}
	c.AlertsActive.Set(float64(n))
}

// AlertFetchFailed counts a failed alert feed poll.
func (c *Collector) AlertFetchFailed() {
	if c == nil {
		return
	}
	c.AlertFetchErrors.Inc()
}

// SavedStopChanged counts a saved stop mutation.
func (c *Collector) SavedStopChanged(action string) {
	if c == nil {
		return
	}
	c.SavedStopsChanges.WithLabelValues(action).Inc()
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests.
func (c *Collector) Gatherer() prometheus.Gatherer { return c.reg }
