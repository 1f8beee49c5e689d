// Package openai provides dense query embeddings over any OpenAI-compatible API
// (OpenAI, Nebius, text-embeddings-inference /v1).
package openai

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

const warmupText = "warmup"

// Config holds the embedding provider settings.
// SendDimensions asks the server to truncate (Matryoshka models only).
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Dimensions     int
	SendDimensions bool
	User           string
	Provider       string
	Logger         *zap.Logger
}

// Embedder calls /embeddings for one query at a time.
type Embedder struct {
	client *openai.Client
	cfg    Config
	logger *zap.Logger

	warmupTokens atomic.Int64
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Embedder{client: openai.NewClientWithConfig(cc), cfg: *cfg, logger: l}
}

func (e *Embedder) request(text string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.cfg.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.cfg.User,
	}
	if e.cfg.SendDimensions && e.cfg.Dimensions > 0 {
		req.Dimensions = e.cfg.Dimensions
	}
	return req
}

// EmbedDense implements domain.DenseEmbedder.
func (e *Embedder) EmbedDense(ctx context.Context, text string) (domain.DenseResult, error) {
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, e.request(text))

	call := metrics.EmbeddingCall{
		Kind:     metrics.KindDense,
		Provider: e.cfg.Provider,
		Model:    e.cfg.Model,
		Duration: time.Since(start),
	}
	if err == nil && len(resp.Data) == 0 {
		err = errEmptyResponse
	}
	if err != nil {
		kind, wrapped := classify(err)
		call.ErrType = kind
		call.Observe()
		return domain.DenseResult{}, wrapped
	}
	call.Observe()

	usage := resp.Usage
	metrics.ObserveTokens(e.cfg.Provider, e.cfg.Model, usage.PromptTokens, usage.TotalTokens)
	return domain.DenseResult{
		Vector:       resp.Data[0].Embedding,
		PromptTokens: usage.PromptTokens,
		TotalTokens:  usage.TotalTokens,
	}, nil
}

// Init sends one short request and checks the output width. Self-hosted servers
// load weights on first use, so this keeps that cost off the first search.
// Tokens spent are reported by WarmupTokens.
func (e *Embedder) Init(ctx context.Context) error {
	res, err := e.EmbedDense(ctx, warmupText)
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	e.warmupTokens.Add(int64(res.TotalTokens))
	if want := e.cfg.Dimensions; want > 0 && len(res.Vector) != want {
		return fmt.Errorf("warmup: %w: got %d, want %d", domain.ErrVectorDimMismatch, len(res.Vector), want)
	}
	e.logger.Debug("Dense embedder warmed up",
		zap.String("provider", e.cfg.Provider),
		zap.String("model", e.cfg.Model),
		zap.Int("dimensions", len(res.Vector)),
	)
	return nil
}

// WarmupTokens returns the tokens consumed by Init calls so far.
func (e *Embedder) WarmupTokens() int64 { return e.warmupTokens.Load() }

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		_, wrapped := classify(err)
		return fmt.Errorf("list models: %w", wrapped)
	}
	return nil
}
