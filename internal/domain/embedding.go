package domain

import (
	"context"
	"fmt"
)

// DenseEmbedder turns text into a fixed-length semantic vector.
type DenseEmbedder interface {
	EmbedDense(ctx context.Context, text string) (DenseResult, error)
}

// SparseEmbedder turns text into weighted lexical features.
type SparseEmbedder interface {
	EmbedSparse(ctx context.Context, text string) (SparseVector, error)
}

// Initializer is implemented by providers that must load or probe their model
// before the first call. Init must be safe to call more than once.
type Initializer interface {
	Init(ctx context.Context) error
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DenseResult carries the dense vector and token usage through the decorator chain.
type DenseResult struct {
	Vector       []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
// BGE-family models expect a retrieval instruction in front of queries.
type InstructionEmbedder struct {
	inner       DenseEmbedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner DenseEmbedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// EmbedDense prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) EmbedDense(ctx context.Context, text string) (DenseResult, error) {
	result, err := e.inner.EmbedDense(ctx, e.instruction+text)
	if err != nil {
		return DenseResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// Init forwards to the inner embedder when it needs initialization.
func (e *InstructionEmbedder) Init(ctx context.Context) error {
	if in, ok := e.inner.(Initializer); ok {
		return in.Init(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
