// Package sparse implements SPLADE sparse embeddings against a
// text-embeddings-inference server (POST /embed_sparse).
package sparse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

const maxErrorBody = 4 << 10

// Config holds the sparse provider settings.
type Config struct {
	BaseURL  string
	Model    string
	Provider string
	Client   *http.Client
	Logger   *zap.Logger
}

// Embedder is a sparse embedding provider.
type Embedder struct {
	baseURL  string
	model    string
	provider string
	client   *http.Client
	logger   *zap.Logger
}

// NewEmbedder creates a TEI sparse embedder. A nil Client uses http.DefaultClient;
// deadlines come from the caller's context.
func NewEmbedder(cfg *Config) *Embedder {
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "tei"
	}
	return &Embedder{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		provider: provider,
		client:   client,
		logger:   logger,
	}
}

type embedRequest struct {
	Inputs   string `json:"inputs"`
	Truncate bool   `json:"truncate"`
}

type sparseValue struct {
	Index uint32  `json:"index"`
	Value float32 `json:"value"`
}

// EmbedSparse implements domain.SparseEmbedder.
func (e *Embedder) EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error) {
	body, err := json.Marshal(embedRequest{Inputs: text, Truncate: true})
	if err != nil {
		return domain.SparseVector{}, fmt.Errorf("marshal request: %w", err)
	}

	call := metrics.EmbeddingCall{Kind: metrics.KindSparse, Provider: e.provider, Model: e.model}
	start := time.Now()
	var out [][]sparseValue
	err = e.do(ctx, http.MethodPost, "/embed_sparse", body, &out)
	call.Duration = time.Since(start)
	if err != nil {
		call.ErrType = "api_error"
		call.Observe()
		return domain.SparseVector{}, err
	}
	if len(out) == 0 {
		call.ErrType = "empty_response"
		call.Observe()
		return domain.SparseVector{}, fmt.Errorf("empty sparse response: %w", domain.ErrEmbeddingProviderError)
	}

	indices := make([]uint32, len(out[0]))
	values := make([]float32, len(out[0]))
	for i, v := range out[0] {
		indices[i] = v.Index
		values[i] = v.Value
	}
	vec, err := domain.NewSparseVector(indices, values)
	if err != nil {
		call.ErrType = "invalid_response"
		call.Observe()
		return domain.SparseVector{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}

	call.Observe()
	return vec, nil
}

// Init probes the server health endpoint. TEI answers 503 until the model is loaded.
func (e *Embedder) Init(ctx context.Context) error {
	if err := e.HealthCheck(ctx); err != nil {
		return err
	}
	e.logger.Debug("Sparse embedder ready",
		zap.String("provider", e.provider),
		zap.String("model", e.model),
		zap.String("base_url", e.baseURL),
	)
	return nil
}

// HealthCheck calls GET /health.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	return nil
}

func (e *Embedder) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("sparse request: %w", ctx.Err())
		}
		return fmt.Errorf("sparse request failed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("sparse API error %d: %s: %w",
			resp.StatusCode, errorDetail(raw), domain.ErrEmbeddingProviderError)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return nil
}

// errorDetail reads TEI's {"error": "...", "error_type": "..."} body.
func errorDetail(raw []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(raw))
}
