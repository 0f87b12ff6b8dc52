package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/repflow/internal/ingest"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestAPIKeyAuth verifies the missing, wrong and correct key cases.
func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusForbidden},
		{"correct", "secret", http.StatusOK},
	}
	handler := APIKeyAuth("secret")(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestCORSPreflight verifies OPTIONS requests are answered without
// reaching the handler.
func TestCORSPreflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sets/s1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("handler called for preflight")
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-API-Key") {
		t.Errorf("allow headers = %q", got)
	}
}

// TestRequestLogging verifies the logged status matches the response.
func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workouts/w1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "status=418") || !strings.Contains(out, "path=/api/v1/workouts/w1") {
		t.Errorf("log output = %q", out)
	}
}

// TestRequestLoggingRecoversPanic verifies a panicking handler yields a 500.
func TestRequestLoggingRecoversPanic(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// TestAPIKeyAuthRejectsNearMisses verifies keys that differ only in length
// or case are refused before the handler runs, with a JSON error body.
func TestAPIKeyAuthRejectsNearMisses(t *testing.T) {
	called := false
	handler := APIKeyAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, key := range []string{"secre", "secret2", "Secret", " secret"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sets/s1", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("key %q: status = %d, want 403", key, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"invalid API key"`) {
			t.Errorf("key %q: body = %q", key, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sets/s1", nil))
	if !strings.Contains(rec.Body.String(), `"missing API key"`) {
		t.Errorf("missing key body = %q", rec.Body.String())
	}
	if called {
		t.Error("handler reached without a valid key")
	}
}

// TestRequestLoggingThroughServer verifies health checks stay out of the
// info log while refused pushes are logged with their status.
func TestRequestLoggingThroughServer(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	db := newMemRecords()
	s := New(db, ingest.NewProvider(db, log), "secret", log)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	if strings.Contains(buf.String(), "path=/health") {
		t.Errorf("health request logged at info: %q", buf.String())
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sets/s1", strings.NewReader(`{}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("push status = %d, want 401", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"level=INFO", "method=POST", "path=/api/v1/sets/s1", "status=401"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %q", want, out)
		}
	}

	buf.Reset()
	debug := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	handler := RequestLogging(debug)(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if out := buf.String(); !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "path=/health") {
		t.Errorf("health request not logged at debug: %q", out)
	}
}
