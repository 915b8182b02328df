package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"nextbus/internal/translink"
)

// serveSSE runs the stream with an already cancelled context so only the
// initial event is written.
func serveSSE(t *testing.T, h *Handler) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/sse/stops/61935", nil).WithContext(ctx)
	req.SetPathValue("id", "61935")
	rec := httptest.NewRecorder()
	h.SSEBoard(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	return rec.Body.String()
}

func TestSSEBoard_InitialEvent(t *testing.T) {
	h := newTestHandler(t, newFake(), nil, nil)
	body := serveSSE(t, h)

	if !strings.HasPrefix(body, "event: board\ndata: {") {
		t.Fatalf("body = %q", body)
	}
	if !strings.HasSuffix(body, "}\n\n") {
		t.Errorf("event not terminated: %q", body)
	}
	if strings.Count(body, "\ndata: ") != 1 {
		t.Errorf("want a single data line, got %q", body)
	}
	if !strings.Contains(body, `"code":"61935"`) {
		t.Errorf("board missing stop code: %q", body)
	}
}

func TestSSEBoard_ErrorEvent(t *testing.T) {
	rtti := newFake()
	rtti.err = &translink.Error{Kind: translink.Timeout, Op: "stop"}
	h := newTestHandler(t, rtti, nil, nil)
	body := serveSSE(t, h)

	want := "event: error\ndata: {\"error\":\"Unable to connect to Translink at this time\"}\n\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
}
