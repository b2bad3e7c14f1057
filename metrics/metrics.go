// Package metrics exposes Prometheus-format counters on a dedicated listener,
// kept off the public API address.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// MetricsServer serves /metrics on its own address.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given service name and listen address.
// An empty address is valid and means metrics are disabled; the returned
// server's ListenAndServe is then a no-op for the caller to skip.
func New(name, addr string) (*MetricsServer, error) {
	if name == "" {
		return nil, fmt.Errorf("metrics service name must not be empty")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{Addr: addr, Handler: mux},
	}, nil
}

// ListenAndServe blocks serving metrics until Shutdown.
func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Counter increments helpers used by the API layer.

// IncRequest counts a handled API request by route.
func IncRequest(route string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`cryptosanta_http_requests_total{route=%q}`, route)).Inc()
}

// IncConflict counts an optimistic-locking conflict surfaced to a caller.
func IncConflict(route string) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`cryptosanta_occ_conflicts_total{route=%q}`, route)).Inc()
}
