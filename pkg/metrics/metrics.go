// Package metrics exposes the Prometheus metrics of the character client.
// All metrics are defined in their respective packages (accumulator, client,
// cache, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package documents them and serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Accumulator Metrics (pkg/accumulator):
//   - rm_accumulator_pages_merged_total (Counter): Pages appended to the accumulated list
//   - rm_accumulator_stale_responses_total (Counter): Responses discarded after a filter change
//   - rm_accumulator_fetch_failures_total{operation} (Counter): Failed fetches by operation (set_filter, refresh, load_more)
//   - rm_accumulator_fetch_duration_seconds{operation} (Histogram): Fetch duration by operation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - rm_rate_limit_remaining (Gauge): Requests remaining in the current window, -1 when unknown
//   - rm_rate_limit_blocks_total (Counter): Requests blocked during a cool-down
//   - rm_rate_limit_throttles_total (Counter): Requests delayed because the window is nearly used up
//
// Cache Metrics (pkg/cache):
//   - rm_cache_hits_total{operation} (Counter): Cache hits by GraphQL operation
//   - rm_cache_misses_total{operation} (Counter): Cache misses by GraphQL operation
//   - rm_cache_purged_total{operation} (Counter): Entries dropped by Purge
//   - rm_cache_size_bytes{layer="redis"} (Gauge): Size of the last cached entry in bytes
//   - rm_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - rm_requests_total{operation, status} (Counter): Requests by GraphQL operation and HTTP status
//   - rm_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - rm_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, graphql, decode)
//
// Retry Metrics (pkg/client):
//   - rm_retries_total{error_class} (Counter): Retry attempts by error class
//   - rm_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - rm_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rm_cache_hits_total[5m])) /
//   (sum(rate(rm_cache_hits_total[5m])) + sum(rate(rm_cache_misses_total[5m])))
//
//   # Stale responses per filter change
//   rate(rm_accumulator_stale_responses_total[5m])
//
//   # Request Error Rate
//   rate(rm_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(rm_request_duration_seconds_bucket[5m]))

// Handler serves /metrics from gatherer and a /health liveness probe.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", healthHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Serve runs the metrics server on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting metrics server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
