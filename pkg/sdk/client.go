package shopsearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	dbPgvector "github.com/kailas-cloud/shopsearch/internal/db/pgvector"
	dbQdrant "github.com/kailas-cloud/shopsearch/internal/db/qdrant"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shopsearch/internal/lexical"
	searchrepo "github.com/kailas-cloud/shopsearch/internal/repository/search"
	"github.com/kailas-cloud/shopsearch/internal/transport/openai"
	"github.com/kailas-cloud/shopsearch/internal/transport/sparse"
	embeddinguc "github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultEmbedTimeout     = 5 * time.Second
	defaultCollection       = "products"
	defaultDenseDims        = 384
)

// Client is the shopsearch SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	healthSvc healthUseCase
	limits    request.Limits
	obs       *observer
}

// New creates a Client, connects to the vector backend and waits until it answers.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection:       defaultCollection,
		embedTimeout:     defaultEmbedTimeout,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("shopsearch: backend not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func (c *clientConfig) validate() error {
	switch c.driver {
	case "":
		return errors.New("shopsearch: backend required (use WithQdrant or WithPostgres)")
	case "qdrant":
		if c.qdrantHost == "" {
			return errors.New("shopsearch: qdrant host required")
		}
	case "pgvector":
		if c.postgresDSN == "" {
			return errors.New("shopsearch: postgres dsn required")
		}
	default:
		return fmt.Errorf("shopsearch: unknown driver %q", c.driver)
	}
	if c.dense == nil && c.openai == nil {
		return errors.New("shopsearch: dense embedder required (use WithOpenAIDense or WithDenseEmbedder)")
	}
	if c.sparse == nil && c.teiSparse == nil && !c.lexical {
		return errors.New("shopsearch: sparse embedder required (use WithTEISparse, WithLexicalSparse or WithSparseEmbedder)")
	}
	if c.fusion != "" && !fusion.Policy(c.fusion).IsValid() {
		return fmt.Errorf("shopsearch: unknown fusion policy %q", c.fusion)
	}
	return nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Host:       cfg.qdrantHost,
			Port:       cfg.qdrantPort,
			APIKey:     cfg.qdrantAPIKey,
			UseTLS:     cfg.qdrantTLS,
			Collection: cfg.collection,
		})
		if err != nil {
			return nil, fmt.Errorf("shopsearch: create qdrant store: %w", err)
		}
		return s, nil
	case "pgvector":
		s, err := dbPgvector.NewStore(ctx, dbPgvector.Config{
			DSN:   cfg.postgresDSN,
			Table: cfg.collection,
		})
		if err != nil {
			return nil, fmt.Errorf("shopsearch: create pgvector store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("shopsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	log := zap.NewNop()

	dense, denseModel, dims := buildDense(cfg)
	if cfg.queryInstruction != "" {
		dense = domain.NewInstructionEmbedder(dense, cfg.queryInstruction)
	}
	denseProv := embeddinguc.NewDenseProvider(dense, denseModel, dims, cfg.embedTimeout, log)

	sparseEmb, sparseModel := buildSparse(cfg)
	sparseProv := embeddinguc.NewSparseProvider(sparseEmb, sparseModel, cfg.embedTimeout, log)

	repo := searchrepo.New(store, searchrepo.Options{
		Driver:        cfg.driver,
		Collection:    cfg.collection,
		PrefetchLimit: cfg.prefetchLimit,
		Fusion:        fusion.Policy(cfg.fusion),
		RRFK:          cfg.rrfK,
	}, log)

	return &Client{
		store:     store,
		searchSvc: searchuc.New(denseProv, sparseProv, repo),
		healthSvc: healthuc.New(store, denseProv, sparseProv, nil),
		limits:    request.Limits{Default: cfg.defaultLimit, Max: cfg.maxLimit},
		obs:       obs,
	}
}

func buildDense(cfg *clientConfig) (domain.DenseEmbedder, string, int) {
	if cfg.dense != nil {
		return &denseAdapter{inner: cfg.dense}, "custom", 0
	}
	dims := cfg.openai.dims
	if dims <= 0 {
		dims = defaultDenseDims
	}
	return openai.NewEmbedder(&openai.Config{
		APIKey:     cfg.openai.apiKey,
		BaseURL:    cfg.openai.baseURL,
		Model:      cfg.openai.model,
		Dimensions: dims,
	}), cfg.openai.model, dims
}

func buildSparse(cfg *clientConfig) (domain.SparseEmbedder, string) {
	switch {
	case cfg.sparse != nil:
		return &sparseAdapter{inner: cfg.sparse}, "custom"
	case cfg.teiSparse != nil:
		return sparse.NewEmbedder(&sparse.Config{
			BaseURL: cfg.teiSparse.baseURL,
			Model:   cfg.teiSparse.model,
			Client:  &http.Client{Timeout: cfg.embedTimeout},
		}), cfg.teiSparse.model
	default:
		return lexical.New(cfg.lexicalVocab), "lexical"
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
