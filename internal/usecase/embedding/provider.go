package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// DefaultTimeout bounds one embedding call, including a lazy init.
const DefaultTimeout = 5 * time.Second

// lifecycle owns one-time initialization and per-call timeouts of a model.
// After the first successful Init the hot path is a single atomic load.
type lifecycle struct {
	kind    string
	model   string
	target  any
	timeout time.Duration
	logger  *zap.Logger

	ready atomic.Bool

	mu       sync.Mutex // guards inflight only, never held across I/O
	inflight *initAttempt
}

// initAttempt is one running Init shared by every caller that arrives while it runs.
type initAttempt struct {
	done chan struct{}
	err  error
}

func newLifecycle(kind, model string, target any, timeout time.Duration, logger *zap.Logger) *lifecycle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &lifecycle{kind: kind, model: model, target: target, timeout: timeout, logger: logger}
}

// Init loads or probes the model once. Concurrent callers share one attempt and
// each stops waiting when its own context ends; the attempt itself is bounded
// only by the lifecycle timeout. A failed attempt leaves the provider not ready
// so a later call may retry.
func (l *lifecycle) Init(ctx context.Context) error {
	if l.ready.Load() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s init: %w", l.model, err)
	}

	l.mu.Lock()
	if l.ready.Load() {
		l.mu.Unlock()
		return nil
	}
	a := l.inflight
	if a == nil {
		a = &initAttempt{done: make(chan struct{})}
		l.inflight = a
		go l.attempt(context.WithoutCancel(ctx), a)
	}
	l.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return fmt.Errorf("%s init: %w", l.model, ctx.Err())
	}
}

func (l *lifecycle) attempt(ctx context.Context, a *initAttempt) {
	a.err = l.initTarget(ctx)

	l.mu.Lock()
	if a.err == nil {
		l.ready.Store(true)
	}
	l.inflight = nil
	l.mu.Unlock()
	close(a.done)
}

func (l *lifecycle) initTarget(ctx context.Context) error {
	if in, ok := l.target.(domain.Initializer); ok {
		initCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		start := time.Now()
		if err := in.Init(initCtx); err != nil {
			metrics.EmbeddingInitTotal.WithLabelValues(l.model, "error").Inc()
			l.logger.Warn("Embedding model init failed",
				zap.String("model", l.model),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, l.model, err)
		}
		l.logger.Info("Embedding model ready",
			zap.String("model", l.model),
			zap.Duration("duration", time.Since(start)),
		)
	}

	metrics.EmbeddingInitTotal.WithLabelValues(l.model, "ok").Inc()
	return nil
}

// Ready reports whether Init has succeeded.
func (l *lifecycle) Ready() bool { return l.ready.Load() }

// Probe initializes the model on first use. Once ready it re-checks the
// provider when the target supports it, so health keeps reflecting reachability.
func (l *lifecycle) Probe(ctx context.Context) error {
	if !l.ready.Load() {
		return l.Init(ctx)
	}
	hc, ok := l.target.(domain.HealthChecker)
	if !ok {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := hc.HealthCheck(pctx); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingUnavailable, l.model, err)
	}
	return nil
}

// call runs fn after ensuring initialization, under the configured timeout.
func (l *lifecycle) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Init(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", l.model, ctx.Err())
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(l.kind, "lifecycle", l.model, "timeout").Inc()
		return fmt.Errorf("%w: %s after %s", domain.ErrEmbeddingTimeout, l.model, l.timeout)
	}
	return err
}

// DenseProvider adds lifecycle and dimension checks to a dense embedder.
type DenseProvider struct {
	*lifecycle
	inner domain.DenseEmbedder
	dims  int
}

// NewDenseProvider wraps inner. dims <= 0 disables the dimension check.
func NewDenseProvider(
	inner domain.DenseEmbedder, model string, dims int,
	timeout time.Duration, logger *zap.Logger,
) *DenseProvider {
	return &DenseProvider{
		lifecycle: newLifecycle(metrics.KindDense, model, inner, timeout, logger),
		inner:     inner,
		dims:      dims,
	}
}

// EmbedDense returns a vector of exactly the configured dimensionality.
func (p *DenseProvider) EmbedDense(ctx context.Context, text string) (domain.DenseResult, error) {
	var result domain.DenseResult
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		result, err = p.inner.EmbedDense(ctx, text)
		return err
	})
	if err != nil {
		return domain.DenseResult{}, fmt.Errorf("dense embedding: %w", err)
	}
	if p.dims > 0 && len(result.Vector) != p.dims {
		return domain.DenseResult{}, fmt.Errorf("dense embedding: %w: got %d, want %d",
			domain.ErrVectorDimMismatch, len(result.Vector), p.dims)
	}
	return result, nil
}

// SparseProvider adds lifecycle and shape checks to a sparse embedder.
type SparseProvider struct {
	*lifecycle
	inner domain.SparseEmbedder
}

// NewSparseProvider wraps inner.
func NewSparseProvider(
	inner domain.SparseEmbedder, model string,
	timeout time.Duration, logger *zap.Logger,
) *SparseProvider {
	return &SparseProvider{
		lifecycle: newLifecycle(metrics.KindSparse, model, inner, timeout, logger),
		inner:     inner,
	}
}

// EmbedSparse returns a vector with parallel slices and unique indices.
func (p *SparseProvider) EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error) {
	var vec domain.SparseVector
	err := p.call(ctx, func(ctx context.Context) error {
		var err error
		vec, err = p.inner.EmbedSparse(ctx, text)
		return err
	})
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("sparse embedding: %w", err)
	}
	if err := vec.Validate(); err != nil {
		return domain.SparseVector{}, fmt.Errorf("sparse embedding: %w", err)
	}
	return vec, nil
}
