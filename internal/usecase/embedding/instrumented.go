package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// BudgetChecker gates paid embedding calls.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedEmbedder puts a token budget and logging in front of a dense embedder.
// Per-call transport metrics live in transport/openai.
type InstrumentedEmbedder struct {
	inner    domain.DenseEmbedder
	provider string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. budget may be nil.
func NewInstrumentedEmbedder(
	inner domain.DenseEmbedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		provider: provider,
		budget:   budget,
		logger:   logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// EmbedDense rejects the call when the budget is spent, otherwise embeds and records usage.
func (p *InstrumentedEmbedder) EmbedDense(ctx context.Context, text string) (domain.DenseResult, error) {
	if err := p.admit(ctx); err != nil {
		return domain.DenseResult{}, err
	}

	start := time.Now()
	res, err := p.inner.EmbedDense(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Error("Embedding request failed", zap.Duration("duration", elapsed), zap.Error(err))
		return domain.DenseResult{}, fmt.Errorf("embed: %w", err)
	}

	p.charge(res.TotalTokens)
	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", elapsed),
		zap.Int("dimensions", len(res.Vector)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

func (p *InstrumentedEmbedder) admit(ctx context.Context) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.logger.Error("Budget exceeded", zap.Error(err))
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *InstrumentedEmbedder) charge(tokens int) {
	if p.budget == nil || tokens <= 0 {
		return
	}
	p.budget.Record(int64(tokens))
	metrics.SetBudgetRemaining(p.provider, p.budget.RemainingDaily(), p.budget.RemainingMonthly())
}

// warmupMeter is implemented by embedders whose Init spends tokens.
type warmupMeter interface {
	WarmupTokens() int64
}

// Init forwards to the inner embedder when it needs initialization and
// charges any warm-up tokens to the budget. Init is not gated by the budget.
func (p *InstrumentedEmbedder) Init(ctx context.Context) error {
	in, ok := p.inner.(domain.Initializer)
	if !ok {
		return nil
	}
	meter, metered := p.inner.(warmupMeter)
	var before int64
	if metered {
		before = meter.WarmupTokens()
	}
	if err := in.Init(ctx); err != nil {
		return err //nolint:wrapcheck // transparent decorator
	}
	if metered {
		p.charge(int(meter.WarmupTokens() - before))
	}
	return nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
