package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingResponse mirrors the OpenAI-compatible API embedding response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

func newServer(t *testing.T, vec []float32, got *embeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}

		resp := embeddingResponse{Object: "list", Model: "BAAI/bge-small-en-v1.5"}
		resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: vec})
		resp.Usage.PromptTokens = 7
		resp.Usage.TotalTokens = 7

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestEmbedder_EmbedDense(t *testing.T) {
	var req embeddingRequest
	server := newServer(t, []float32{0.1, 0.2, 0.3, 0.4}, &req)
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "BAAI/bge-small-en-v1.5",
		Dimensions: 4,
		Provider:   "tei",
		Logger:     zap.NewNop(),
	})

	result, err := emb.EmbedDense(context.Background(), "red summer dress")
	if err != nil {
		t.Fatalf("EmbedDense failed: %v", err)
	}
	if len(result.Vector) != 4 {
		t.Fatalf("expected 4 dims, got %d", len(result.Vector))
	}
	if result.PromptTokens != 7 || result.TotalTokens != 7 {
		t.Errorf("unexpected usage: %+v", result)
	}
	if len(req.Input) != 1 || req.Input[0] != "red summer dress" {
		t.Errorf("unexpected input: %v", req.Input)
	}
	if req.Dimensions != 0 {
		t.Errorf("expected dimensions omitted by default, got %d", req.Dimensions)
	}
}

func TestEmbedder_SendDimensions(t *testing.T) {
	var req embeddingRequest
	server := newServer(t, []float32{0.1, 0.2}, &req)
	defer server.Close()

	emb := NewEmbedder(&Config{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "text-embedding-3-small",
		Dimensions:     2,
		SendDimensions: true,
		Provider:       "openai",
	})

	if _, err := emb.EmbedDense(context.Background(), "tee"); err != nil {
		t.Fatalf("EmbedDense failed: %v", err)
	}
	if req.Dimensions != 2 {
		t.Errorf("expected dimensions=2 in request, got %d", req.Dimensions)
	}
}

func TestEmbedder_Init(t *testing.T) {
	server := newServer(t, []float32{0.1, 0.2, 0.3}, nil)
	defer server.Close()

	ok := NewEmbedder(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "m", Dimensions: 3, Provider: "tei"})
	if err := ok.Init(context.Background()); err != nil {
		t.Errorf("unexpected init error: %v", err)
	}
	if got := ok.WarmupTokens(); got != 7 {
		t.Errorf("WarmupTokens() = %d, want 7", got)
	}

	wrongDims := NewEmbedder(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "m", Dimensions: 384, Provider: "tei"})
	if err := wrongDims.Init(context.Background()); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "m", Provider: "test"})

	_, err := emb.EmbedDense(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embeddingResponse{Object: "list"})
	}))
	defer server.Close()

	emb := NewEmbedder(&Config{APIKey: "test-key", BaseURL: server.URL, Model: "m", Provider: "test"})
	if _, err := emb.EmbedDense(context.Background(), "hello"); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"model not found"}`, "model not found"},
		{`{"error":"Input validation error","error_type":"Validation"}`, "Input validation error"},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := extractDetail([]byte(tt.body)); got != tt.want {
			t.Errorf("extractDetail(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty", errEmptyResponse, errTypeEmpty},
		{"deadline", context.DeadlineExceeded, errTypeTimeout},
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, errTypeRateLimited},
		{"auth", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, errTypeAuth},
		{"server", &openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Body: []byte(`{"detail":"upstream"}`)}, errTypeServer},
		{"bad request", &openai.RequestError{HTTPStatusCode: http.StatusUnprocessableEntity, Body: []byte(`{"error":"too long"}`)}, errTypeBadRequest},
		{"transport", errors.New("connection refused"), errTypeTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := classify(tt.err)
			if kind != tt.want {
				t.Errorf("kind = %q, want %q", kind, tt.want)
			}
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
			}
		})
	}
}

func TestClassify_KeepsDeadlineCause(t *testing.T) {
	_, err := classify(context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline to stay reachable, got %v", err)
	}
}
