package shopsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics are registered on the caller's registerer, never the global one.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	hits       prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopsearch",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "SDK calls by operation and outcome class.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopsearch",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK call latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		hits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shopsearch",
			Subsystem: "sdk",
			Name:      "search_hits",
			Help:      "Hits returned per successful search.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
		}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.hits); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	if err == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return fmt.Errorf("shopsearch: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("shopsearch: metric already registered as %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// outcome buckets an error into a low-cardinality status label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidFilter):
		return "invalid"
	case errors.Is(err, ErrEmbeddingQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrEmbeddingTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// observer logs and counts SDK calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := outcome(err)

	if o.metrics != nil {
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	switch status {
	case "ok":
		o.logger.Debug("shopsearch call", "op", op, "duration", dur)
	case "invalid":
		o.logger.Info("shopsearch call rejected", "op", op, "error", err)
	default:
		o.logger.Warn("shopsearch call failed", "op", op, "status", status, "duration", dur, "error", err)
	}
}

func (o *observer) observeHits(n int) {
	if o == nil || o.metrics == nil {
		return
	}
	o.metrics.hits.Observe(float64(n))
}
