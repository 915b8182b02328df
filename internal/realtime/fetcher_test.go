package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"nextbus/internal/metrics"
)

func translated(texts ...string) *gtfs.TranslatedString {
	ts := &gtfs.TranslatedString{}
	for i := 0; i+1 < len(texts); i += 2 {
		ts.Translation = append(ts.Translation, &gtfs.TranslatedString_Translation{
			Language: proto.String(texts[i]),
			Text:     proto.String(texts[i+1]),
		})
	}
	return ts
}

func testFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("detour-4"),
				Alert: &gtfs.Alert{
					HeaderText:      translated("fr", "Détour", "en", "Route 4 detour"),
					DescriptionText: translated("en", "Buses detoured via W Broadway."),
					Effect:          gtfs.Alert_DETOUR.Enum(),
					Cause:           gtfs.Alert_CONSTRUCTION.Enum(),
					InformedEntity: []*gtfs.EntitySelector{
						{RouteId: proto.String("004")},
						{RouteId: proto.String("004"), StopId: proto.String("61935")},
						{StopId: proto.String("61935")},
					},
				},
			},
			{
				Id:        proto.String("deleted"),
				IsDeleted: proto.Bool(true),
				Alert:     &gtfs.Alert{HeaderText: translated("en", "gone")},
			},
			{
				Id: proto.String("vehicle-only"),
			},
		},
	}
}

func TestFetcher_Fetch(t *testing.T) {
	body, err := proto.Marshal(testFeed())
	if err != nil {
		t.Fatal(err)
	}
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.Write(body)
	}))
	defer srv.Close()

	store := NewStore()
	m := metrics.NewCollector()
	f := NewFetcher(srv.URL+"/v3/gtfsalerts", "key", time.Minute, store, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := f.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotKey != "key" {
		t.Errorf("apikey = %q, want key", gotKey)
	}

	alerts := store.AllAlerts()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.ID != "detour-4" || a.HeaderText != "Route 4 detour" || a.Effect != "DETOUR" || a.Cause != "CONSTRUCTION" {
		t.Errorf("alert = %+v", a)
	}
	if len(a.RouteIDs) != 1 || len(a.StopIDs) != 1 {
		t.Errorf("informed entities not deduplicated: routes=%v stops=%v", a.RouteIDs, a.StopIDs)
	}
	if store.Updated().IsZero() {
		t.Error("Updated should be set after a fetch")
	}
}

func TestFetcher_FetchErrorKeepsAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	store := NewStore()
	store.SetAlerts([]Alert{{ID: "old"}})
	f := NewFetcher(srv.URL, "key", 0, store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := f.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch should fail on HTTP 403")
	}
	if got := store.AllAlerts(); len(got) != 1 || got[0].ID != "old" {
		t.Errorf("alerts = %+v, want previous snapshot", got)
	}
}

func TestFetcher_BadProtobuf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>")
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, "", time.Minute, NewStore(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := f.Fetch(context.Background()); err == nil {
		t.Error("Fetch should fail on a non-protobuf body")
	}
}

func TestGetTranslation(t *testing.T) {
	tests := []struct {
		name string
		ts   *gtfs.TranslatedString
		want string
	}{
		{"nil", nil, ""},
		{"english preferred", translated("fr", "Bonjour", "en", "Hello"), "Hello"},
		{"fallback to first", translated("fr", "Bonjour", "zh", "你好"), "Bonjour"},
		{"no language", translated("", "Hello"), "Hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getTranslation(tt.ts); got != tt.want {
				t.Errorf("getTranslation = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatAlertEffect(t *testing.T) {
	if got := FormatAlertEffect("DETOUR"); got != "Detour" {
		t.Errorf("FormatAlertEffect(DETOUR) = %q", got)
	}
	if got := FormatAlertEffect("UNKNOWN_EFFECT"); got != "Alert" {
		t.Errorf("FormatAlertEffect(UNKNOWN_EFFECT) = %q", got)
	}
}
