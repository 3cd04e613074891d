package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func get(t *testing.T, s *Server, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer("127.0.0.1", 0)
	code, body := get(t, s, "/health")
	if code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", code)
	}
	if !strings.Contains(body, `"ok"`) {
		t.Errorf("/health body = %q", body)
	}
}

func TestReadyTogglesWithStartup(t *testing.T) {
	s := NewServer("127.0.0.1", 0)

	if code, _ := get(t, s, "/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("/ready before SetReady = %d, want 503", code)
	}
	s.SetReady(true)
	if code, _ := get(t, s, "/ready"); code != http.StatusOK {
		t.Errorf("/ready after SetReady = %d, want 200", code)
	}
}

func TestMetricsExposed(t *testing.T) {
	s := NewServer("127.0.0.1", 0)
	code, body := get(t, s, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", code)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Errorf("/metrics body does not look like a Prometheus exposition")
	}
}

func TestHandleMountsExtraRoutes(t *testing.T) {
	s := NewServer("127.0.0.1", 0)
	s.Handle("/slack/events", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "mounted")
	}))
	code, body := get(t, s, "/slack/events")
	if code != http.StatusOK || body != "mounted" {
		t.Errorf("mounted route = %d %q", code, body)
	}
}
