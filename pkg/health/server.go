// Package health serves the HTTP surface: liveness and readiness
// probes, Prometheus metrics, and any handlers mounted on it (the
// webhook endpoint in serve mode).
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	mux   *http.ServeMux
	srv   *http.Server
	ready atomic.Bool
}

func NewServer(host string, port int) *Server {
	s := &Server{mux: http.NewServeMux()}

	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok"}`)
	})
	s.mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"status":"starting"}`)
			return
		}
		io.WriteString(w, `{"status":"ready"}`)
	})
	s.mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handle mounts an additional handler, e.g. the webhook endpoint.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// SetReady flips the /ready probe once startup wiring is complete.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler exposes the routing table. Intended for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Addr() string { return s.srv.Addr }

// Start blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
