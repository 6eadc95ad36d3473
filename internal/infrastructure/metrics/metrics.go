package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/invoiceagent/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Pipeline metrics
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	FilesTotal         *prometheus.CounterVec
	FileDuration       prometheus.Histogram
	ExtractionDuration prometheus.Histogram
	ExtractionErrors   *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewWithRegisterer creates and registers all Prometheus metrics on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoiceagent_runs_total",
				Help: "Total pipeline runs by final status",
			},
			[]string{"status"},
		),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoiceagent_run_duration_seconds",
			Help:    "Duration of pipeline runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoiceagent_files_total",
				Help: "Total files handled by outcome",
			},
			[]string{"outcome"},
		),
		FileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoiceagent_file_duration_seconds",
			Help:    "Time spent on one file, extraction and archive included",
			Buckets: prometheus.DefBuckets,
		}),
		ExtractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoiceagent_extraction_duration_seconds",
			Help:    "Latency of model extraction calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ExtractionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoiceagent_extraction_errors_total",
				Help: "Total failed extraction calls by error type",
			},
			[]string{"error_type"},
		),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "invoiceagent_last_run_timestamp_seconds",
			Help: "Unix time of the last finished run",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoiceagent_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "invoiceagent_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "invoiceagent_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoiceagent_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"endpoint"},
		),
	}
}

// ObserveFile implements usecase.RunRecorder.
func (m *Metrics) ObserveFile(outcome domain.FileOutcome, duration time.Duration) {
	m.FilesTotal.WithLabelValues(string(outcome)).Inc()
	m.FileDuration.Observe(duration.Seconds())
}

// ObserveExtraction implements usecase.RunRecorder.
func (m *Metrics) ObserveExtraction(duration time.Duration, err error) {
	m.ExtractionDuration.Observe(duration.Seconds())
	if err != nil {
		m.ExtractionErrors.WithLabelValues(extractionErrorType(err)).Inc()
	}
}

// ObserveRun implements usecase.RunRecorder.
func (m *Metrics) ObserveRun(summary *domain.RunSummary) {
	m.RunsTotal.WithLabelValues(string(summary.Status)).Inc()
	if !summary.FinishedAt.IsZero() {
		m.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
		m.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))
	}
}

func extractionErrorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "model"
	}
}
