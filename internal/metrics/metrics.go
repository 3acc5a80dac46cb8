package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanari_search_requests_total",
			Help: "Total number of search API calls issued",
		},
		[]string{"category", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanari_search_duration_seconds",
			Help:    "Duration of search API calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"category"},
	)

	SearchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanari_search_items_total",
			Help: "Total raw items returned across all search pages",
		},
		[]string{"category"},
	)

	QueriesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanari_queries_failed_total",
			Help: "Queries whose pagination was aborted by a fetch failure",
		},
		[]string{"category"},
	)
)

// RecordSearch updates the call metrics for a single search API call.
// status is the HTTP status code as a string, or "error" when the call
// failed before a response.
func RecordSearch(category, status string, duration time.Duration, items int) {
	SearchRequestsTotal.WithLabelValues(category, status).Inc()
	SearchDuration.WithLabelValues(category).Observe(duration.Seconds())
	if items > 0 {
		SearchItemsTotal.WithLabelValues(category).Add(float64(items))
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
