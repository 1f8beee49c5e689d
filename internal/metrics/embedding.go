package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding kinds used as the "kind" label.
const (
	KindDense  = "dense"
	KindSparse = "sparse"
)

// Provider round trips, labelled by embedding kind so the two query branches can be told apart.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding provider calls by outcome",
	}, []string{"kind", "provider", "model", "status"})

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Latency of successful embedding calls",
		Buckets:   []float64{0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
	}, []string{"kind", "provider", "model"})

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "errors_total",
		Help:      "Failed embedding calls by cause",
	}, []string{"kind", "provider", "model", "error_type"})

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "tokens_total",
		Help:      "Tokens billed by the dense provider",
	}, []string{"provider", "model", "type"})

	EmbeddingInitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "init_total",
		Help:      "Model warm-up attempts",
	}, []string{"model", "result"})

	EmbeddingBudgetTokensRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "embedding",
		Name:      "budget_tokens_remaining",
		Help:      "Tokens left in the current budget window, -1 when unlimited",
	}, []string{"provider", "period"})
)

var registerEmbedding sync.Once

// RegisterEmbeddingMetrics registers the embedding collectors on the default registry.
// Safe to call more than once.
func RegisterEmbeddingMetrics() {
	registerEmbedding.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingErrorsTotal,
			EmbeddingTokensTotal,
			EmbeddingInitTotal,
			EmbeddingBudgetTokensRemaining,
		)
	})
}

// EmbeddingCall is one provider round trip. ErrType is empty on success.
type EmbeddingCall struct {
	Kind     string
	Provider string
	Model    string
	Duration time.Duration
	ErrType  string
}

// Observe records the call outcome. Latency is only kept for successes.
func (c EmbeddingCall) Observe() {
	if c.ErrType != "" {
		EmbeddingRequestsTotal.WithLabelValues(c.Kind, c.Provider, c.Model, "error").Inc()
		EmbeddingErrorsTotal.WithLabelValues(c.Kind, c.Provider, c.Model, c.ErrType).Inc()
		return
	}
	EmbeddingRequestsTotal.WithLabelValues(c.Kind, c.Provider, c.Model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(c.Kind, c.Provider, c.Model).Observe(c.Duration.Seconds())
}

// ObserveTokens adds billed token counts; zero totals are ignored.
func ObserveTokens(provider, model string, prompt, total int) {
	if total <= 0 {
		return
	}
	EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(prompt))
	EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(total))
}

// SetBudgetRemaining publishes the remaining daily and monthly token budget.
func SetBudgetRemaining(provider string, daily, monthly int64) {
	EmbeddingBudgetTokensRemaining.WithLabelValues(provider, "daily").Set(float64(daily))
	EmbeddingBudgetTokensRemaining.WithLabelValues(provider, "monthly").Set(float64(monthly))
}
