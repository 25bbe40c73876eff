package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/attendance/attendancetest"
	"github.com/kozaktomas/face-attendance/internal/batch"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			URL:           "http://localhost:5000",
			TeacherID:     "T001",
			DefaultCourse: "BSC IT",
		},
		Capture: config.CaptureConfig{
			Device:      "dir:./frames",
			IntervalMS:  1500,
			QueuePolicy: "unbounded",
		},
	}
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse decodes the recorded body
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, recorder.Body.String())
	}
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d (body: %s)", expected, recorder.Code, recorder.Body.String())
	}
}

func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	if ct := recorder.Header().Get("Content-Type"); ct != expected {
		t.Errorf("expected Content-Type %q, got %q", expected, ct)
	}
}

// assertJSONError checks the {"error": ...} body contains want
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, want string) {
	t.Helper()
	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if !strings.Contains(result["error"], want) {
		t.Errorf("expected error containing %q, got %q", want, result["error"])
	}
}

// newTestBackend starts the fake attendance API and a client for it
func newTestBackend(t *testing.T) (*attendancetest.Backend, *attendance.Client) {
	t.Helper()
	backend := attendancetest.New()
	t.Cleanup(backend.Close)

	client, err := attendance.NewClient(backend.URL())
	if err != nil {
		t.Fatalf("failed to create attendance client: %v", err)
	}
	return backend, client
}

// framesDir writes a single JPEG into a temp dir for the directory device
func framesDir(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "frame-001.jpg"), buf.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
	return dir
}

// newTestController builds a controller replaying frames from a temp dir
// against the fake backend. The session is stopped on cleanup.
func newTestController(t *testing.T, dir string) (*session.Controller, *attendancetest.Backend) {
	t.Helper()
	backend, client := newTestBackend(t)

	opts := session.DefaultOptions()
	opts.Interval = 2 * time.Millisecond
	opts.QueuePolicy = batch.PolicyUnbounded
	opts.DeviceName = "dir:" + dir

	c := session.NewController(session.Identity{TeacherID: "T001"}, client, capture.NewDirectoryDevice(dir), opts)
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c, backend
}

// waitFor polls cond until it holds or the test times out
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
