package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/riskviz/pkg/errors"
	"github.com/matzehuels/riskviz/pkg/observability"
	"github.com/matzehuels/riskviz/pkg/record"
)

var (
	testCases = []record.Case{
		{ID: 1, RiskMean: 0.12, CILow: 0.08, CIHigh: 0.16, Label: "LOW_tight"},
		{ID: 2, RiskMean: 0.5, CILow: 0.7, CIHigh: 0.3, Label: "BROKEN"},
		{ID: 3, RiskMean: 0.52, CILow: 0.3, CIHigh: 0.74, Label: "MID_wide"},
	}
	testIndex = record.NewIndex([]record.Attribution{
		{CaseID: 1, Feature: "age", Value: -0.15},
		{CaseID: 1, Feature: "chol", Value: 0.04},
		{CaseID: 2, Feature: "age", Value: 0.1},
		{CaseID: 3, Feature: "thalach", Value: 0.22},
	})
)

func newTestServer() *Server {
	return New(Config{
		Cases:   testCases,
		Index:   testIndex,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	h := newTestServer().Handler()

	tests := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{"health", "/healthz", http.StatusOK, "application/json", `"status":"ok"`},
		{"cases", "/cases", http.StatusOK, "application/json", `"label":"MID_wide"`},
		{"layout json", "/cases/1/layout", http.StatusOK, "application/json", `"risk_markers"`},
		{"layout yaml", "/cases/3/layout?format=yaml", http.StatusOK, "application/yaml", "risk_markers:"},
		{"render default", "/cases/1/render", http.StatusOK, "image/svg+xml", "<svg"},
		{"render view", "/cases/3/render?view=dashboard&width=900", http.StatusOK, "image/svg+xml", "<svg"},
		{"compare", "/compare", http.StatusOK, "image/svg+xml", "<svg"},
		{"compare json", "/compare?format=json", http.StatusOK, "application/json", `"case"`},
		{"metrics", "/metrics", http.StatusOK, "", "# metrics"},
		{"unknown case", "/cases/99/layout", http.StatusNotFound, "application/json", `"NOT_FOUND"`},
		{"bad id", "/cases/abc/render", http.StatusBadRequest, "application/json", `"INVALID_INPUT"`},
		{"bad view", "/cases/1/render?view=pie", http.StatusBadRequest, "application/json", `"INVALID_VIEW"`},
		{"comparison on case", "/cases/1/render?view=comparison", http.StatusBadRequest, "application/json", `"INVALID_VIEW"`},
		{"bad format", "/cases/1/render?format=gif", http.StatusBadRequest, "application/json", `"INVALID_FORMAT"`},
		{"bad width", "/cases/1/render?width=-3", http.StatusBadRequest, "application/json", `"INVALID_INPUT"`},
		{"layout image format", "/cases/1/layout?format=svg", http.StatusBadRequest, "application/json", `"INVALID_FORMAT"`},
		{"inverted interval", "/cases/2/render", http.StatusUnprocessableEntity, "application/json", `"INVALID_RANGE"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.contentType != "" && !strings.HasPrefix(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", rec.Header().Get("Content-Type"), tt.contentType)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body missing %q:\n%s", tt.contains, rec.Body.String())
			}
		})
	}
}

func TestCasesBody(t *testing.T) {
	rec := get(t, newTestServer().Handler(), "/cases")

	var got []struct {
		ID           int `json:"id"`
		Attributions int `json:"attributions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []struct {
		ID           int `json:"id"`
		Attributions int `json:"attributions"`
	}{{1, 2}, {2, 1}, {3, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cases mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderDeterministic(t *testing.T) {
	h := newTestServer().Handler()
	a := get(t, h, "/cases/3/render?view=dotplot").Body.String()
	b := get(t, h, "/cases/3/render?view=dotplot").Body.String()
	if a != b {
		t.Error("repeated renders differ")
	}
}

type recordingHooks struct {
	routes []string
}

func (h *recordingHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.routes = append(h.routes, method+" "+route)
}

func TestObserveReportsRoutePattern(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	h := newTestServer().Handler()
	get(t, h, "/cases/1/layout")
	get(t, h, "/healthz")

	want := []string{"GET /cases/{id}/layout", "GET /healthz"}
	if diff := cmp.Diff(want, hooks.routes); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeInvalidView, http.StatusBadRequest},
		{errors.ErrCodeEmptyAttributionSet, http.StatusUnprocessableEntity},
		{errors.ErrCodeUnsupported, http.StatusNotImplemented},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestListenAndServeStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestServer().ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
