package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"nextbus/internal/model"
)

func rttiServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stops/61935", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"StopNo":61935,"Name":"W 4TH AVE FS BALACLAVA ST","OnStreet":"W 4TH AVE","AtStreet":"BALACLAVA ST","City":"VANCOUVER","Latitude":49.268,"Longitude":-123.17,"Routes":"004, 007"}`)
	})
	mux.HandleFunc("GET /stops/61935/estimates", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"RouteNo":"004","Schedules":[{"Destination":"UBC","ExpectedCountdown":4,"ScheduleStatus":" "},{"Destination":"UBC","ExpectedCountdown":19,"ScheduleStatus":"-"}]}]`)
	})
	mux.HandleFunc("GET /buses", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"VehicleNo":"2531","RouteNo":"004","Destination":"UBC","Direction":"WEST","Latitude":49.268,"Longitude":-123.16}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// run executes the CLI against a fake upstream with a throwaway database and
// returns stdout.
func run(t *testing.T, upstream, db string, args ...string) (string, error) {
	t.Helper()
	alerts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(alerts.Close)

	t.Setenv("NEXTBUS_CONFIG", "")
	t.Setenv("NEXTBUS_API_KEY", "")
	t.Setenv("NEXTBUS_ALERTS_URL", alerts.URL)
	t.Setenv("NEXTBUS_LOG_LEVEL", "error")

	var out bytes.Buffer
	app := newApp(&env{})
	app.Writer = &out
	app.ErrWriter = io.Discard

	argv := append([]string{"nextbus",
		"--api-key", "test-key",
		"--base-url", upstream,
		"--db", db,
		"--skip-net-check",
	}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func TestCLI_Estimates(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := rttiServer(t)
	out, err := run(t, upstream.URL, "nextbus.db", "estimates", "61935")
	if err != nil {
		t.Fatalf("estimates: %v", err)
	}
	for _, want := range []string{"004", "UBC", "4 min", "19 min", "Delayed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_EstimatesJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := rttiServer(t)
	out, err := runJSON(t, upstream.URL, "estimates", "61935")
	if err != nil {
		t.Fatalf("estimates --json: %v", err)
	}
	var got []model.ArrivalEstimate
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 2 || got[0].Countdown != 4 || got[1].Status != model.Delayed {
		t.Errorf("estimates = %+v", got)
	}
}

func runJSON(t *testing.T, upstream string, args ...string) (string, error) {
	t.Helper()
	return run(t, upstream, filepath.Join(t.TempDir(), "nextbus.db"), append([]string{"--json"}, args...)...)
}

func TestCLI_Board(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := rttiServer(t)
	out, err := run(t, upstream.URL, "nextbus.db", "board", "61935")
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	for _, want := range []string{"W 4TH AVE FS BALACLAVA ST", "4 min", "2531", "Westbound", "away"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_SavedStops(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := rttiServer(t)
	db := filepath.Join(t.TempDir(), "nextbus.db")

	if _, err := run(t, upstream.URL, db, "save", "--label", "Home", "61935"); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := run(t, upstream.URL, db, "saved")
	if err != nil {
		t.Fatalf("saved: %v", err)
	}
	if !strings.Contains(out, "61935") || !strings.Contains(out, "Home") {
		t.Errorf("saved output:\n%s", out)
	}

	if _, err := run(t, upstream.URL, db, "unsave", "61935"); err != nil {
		t.Fatalf("unsave: %v", err)
	}
	if _, err := run(t, upstream.URL, db, "unsave", "61935"); err == nil {
		t.Error("second unsave should fail")
	}
	out, _ = run(t, upstream.URL, db, "saved")
	if !strings.Contains(out, "no saved stops") {
		t.Errorf("saved output after unsave:\n%s", out)
	}
}

func TestCLI_UpstreamFailureMessage(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>oops</html>")
	}))
	t.Cleanup(upstream.Close)

	_, err := run(t, upstream.URL, "nextbus.db", "stop", "61935")
	if err == nil || err.Error() != "Failed to get data from Translink service" {
		t.Errorf("err = %v", err)
	}
}

func TestCLI_MissingStop(t *testing.T) {
	t.Chdir(t.TempDir())
	upstream := rttiServer(t)
	if _, err := run(t, upstream.URL, "nextbus.db", "stop"); err == nil {
		t.Error("stop without an argument should fail")
	}
}
