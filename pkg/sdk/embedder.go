package shopsearch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// DenseEmbedder converts query text to a dense vector.
type DenseEmbedder interface {
	EmbedDense(ctx context.Context, text string) ([]float32, error)
}

// SparseEmbedder converts query text to a sparse vector as parallel index/value slices.
type SparseEmbedder interface {
	EmbedSparse(ctx context.Context, text string) (indices []uint32, values []float32, err error)
}

// denseAdapter wraps a public DenseEmbedder to satisfy domain.DenseEmbedder.
type denseAdapter struct {
	inner DenseEmbedder
}

func (a *denseAdapter) EmbedDense(ctx context.Context, text string) (domain.DenseResult, error) {
	v, err := a.inner.EmbedDense(ctx, text)
	if err != nil {
		return domain.DenseResult{}, fmt.Errorf("embed dense: %w", err)
	}
	return domain.DenseResult{Vector: v}, nil
}

// Init forwards to the wrapped embedder when it has a warm-up step.
func (a *denseAdapter) Init(ctx context.Context) error {
	if in, ok := a.inner.(domain.Initializer); ok {
		return in.Init(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}

// sparseAdapter wraps a public SparseEmbedder; output is sorted and checked for duplicates.
type sparseAdapter struct {
	inner SparseEmbedder
}

func (a *sparseAdapter) EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error) {
	idx, vals, err := a.inner.EmbedSparse(ctx, text)
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("embed sparse: %w", err)
	}
	v, err := domain.NewSparseVector(idx, vals)
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("embed sparse: %w", err)
	}
	return v, nil
}

// Init forwards to the wrapped embedder when it has a warm-up step.
func (a *sparseAdapter) Init(ctx context.Context) error {
	if in, ok := a.inner.(domain.Initializer); ok {
		return in.Init(ctx) //nolint:wrapcheck // transparent adapter
	}
	return nil
}
