package realtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"nextbus/internal/metrics"
)

// Fetcher polls TransLink's GTFS-RT service alert feed and updates the store.
type Fetcher struct {
	alertsURL string
	apiKey    string
	interval  time.Duration
	store     *Store
	client    *http.Client
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// NewFetcher creates a GTFS-RT alert fetcher. The api key is sent as the
// "apikey" query parameter.
func NewFetcher(alertsURL, apiKey string, interval time.Duration, store *Store, m *metrics.Collector, logger *slog.Logger) *Fetcher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Fetcher{
		alertsURL: alertsURL,
		apiKey:    apiKey,
		interval:  interval,
		store:     store,
		client:    &http.Client{Timeout: 15 * time.Second},
		metrics:   m,
		logger:    logger,
	}
}

// Start polls the feed until ctx is cancelled.
func (f *Fetcher) Start(ctx context.Context) {
	if err := f.Fetch(ctx); err != nil {
		f.logger.Warn("fetch alerts failed", "error", err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Fetch(ctx); err != nil {
				f.logger.Warn("fetch alerts failed", "error", err)
			}
		case <-ctx.Done():
			f.logger.Info("GTFS-RT fetcher stopped")
			return
		}
	}
}

// Fetch downloads the feed once and replaces the store's alerts.
func (f *Fetcher) Fetch(ctx context.Context) error {
	alerts, err := f.fetch(ctx)
	if err != nil {
		f.metrics.AlertFetchFailed()
		return err
	}
	f.store.SetAlerts(alerts)
	f.metrics.SetAlerts(len(alerts))
	f.logger.Info("GTFS-RT alerts updated", "count", len(alerts))
	return nil
}

func (f *Fetcher) fetch(ctx context.Context) ([]Alert, error) {
	u, err := url.Parse(f.alertsURL)
	if err != nil {
		return nil, fmt.Errorf("parse alerts url: %w", err)
	}
	if f.apiKey != "" {
		q := u.Query()
		q.Set("apikey", f.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create alerts request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// url.Error carries the full URL, key included.
		return nil, fmt.Errorf("alerts request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alerts feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read alerts body: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("parse alerts protobuf: %w", err)
	}
	return alertsFromFeed(feed), nil
}

func alertsFromFeed(feed *gtfs.FeedMessage) []Alert {
	var alerts []Alert
	for _, entity := range feed.GetEntity() {
		a := entity.GetAlert()
		if a == nil || entity.GetIsDeleted() {
			continue
		}

		alert := Alert{
			ID:         entity.GetId(),
			HeaderText: getTranslation(a.GetHeaderText()),
			DescText:   getTranslation(a.GetDescriptionText()),
			Effect:     a.GetEffect().String(),
			Cause:      a.GetCause().String(),
		}
		for _, p := range a.GetActivePeriod() {
			alert.Periods = append(alert.Periods, Period{Start: p.GetStart(), End: p.GetEnd()})
		}

		routeSet := make(map[string]bool)
		stopSet := make(map[string]bool)
		for _, ie := range a.GetInformedEntity() {
			if rid := ie.GetRouteId(); rid != "" && !routeSet[rid] {
				alert.RouteIDs = append(alert.RouteIDs, rid)
				routeSet[rid] = true
			}
			if sid := ie.GetStopId(); sid != "" && !stopSet[sid] {
				alert.StopIDs = append(alert.StopIDs, sid)
				stopSet[sid] = true
			}
		}

		alerts = append(alerts, alert)
	}
	return alerts
}

// getTranslation prefers English and falls back to the first non-empty text.
func getTranslation(ts *gtfs.TranslatedString) string {
	if ts == nil {
		return ""
	}
	var first string
	for _, t := range ts.GetTranslation() {
		text := t.GetText()
		if text == "" {
			continue
		}
		if lang := t.GetLanguage(); lang == "en" || lang == "" {
			return text
		}
		if first == "" {
			first = text
		}
	}
	return first
}

// FormatAlertEffect returns a human-readable effect description.
func FormatAlertEffect(effect string) string {
	switch effect {
	case "NO_SERVICE":
		return "No Service"
	case "REDUCED_SERVICE":
		return "Reduced Service"
	case "SIGNIFICANT_DELAYS":
		return "Significant Delays"
	case "DETOUR":
		return "Detour"
	case "ADDITIONAL_SERVICE":
		return "Additional Service"
	case "MODIFIED_SERVICE":
		return "Modified Service"
	case "STOP_MOVED":
		return "Stop Moved"
	default:
		return "Alert"
	}
}
