// Package metrics exposes campaign counters over Prometheus so long-running
// fuzzing runs can be watched from the outside.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the campaign's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	IterationsTotal   prometheus.Counter
	FindingsTotal     *prometheus.CounterVec
	TransportErrors   prometheus.Counter
	SinkErrors        *prometheus.CounterVec
	CorpusSize        prometheus.Gauge
	IterationDuration prometheus.Histogram
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpdelta_iterations_total",
			Help: "Fuzzing iterations executed",
		}),
		FindingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "httpdelta_findings_total",
			Help: "Findings recorded by discrepancy category",
		}, []string{"category"}),
		TransportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "httpdelta_transport_errors_total",
			Help: "Iterations aborted by transport failures",
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "httpdelta_sink_errors_total",
			Help: "Errors writing findings to a sink",
		}, []string{"sink"}),
		CorpusSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "httpdelta_corpus_size",
			Help: "Seeds currently in the corpus",
		}),
		IterationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "httpdelta_iteration_duration_seconds",
			Help:    "Wall time per fuzzing iteration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	m.registry.MustRegister(
		m.IterationsTotal,
		m.FindingsTotal,
		m.TransportErrors,
		m.SinkErrors,
		m.CorpusSize,
		m.IterationDuration,
	)
	return m
}

// Serve exposes /metrics on addr until the context is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("metrics server stopped", slog.String("error", err.Error()))
	}
}
