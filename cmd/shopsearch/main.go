package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/config"
	"github.com/kailas-cloud/shopsearch/internal/db"
	dbPgvector "github.com/kailas-cloud/shopsearch/internal/db/pgvector"
	dbQdrant "github.com/kailas-cloud/shopsearch/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/shopsearch/internal/db/redis"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shopsearch/internal/lexical"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	budgetrepo "github.com/kailas-cloud/shopsearch/internal/repository/budget"
	searchrepo "github.com/kailas-cloud/shopsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/shopsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/shopsearch/internal/transport/openai"
	sparseEmb "github.com/kailas-cloud/shopsearch/internal/transport/sparse"
	embeddinguc "github.com/kailas-cloud/shopsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
	usageuc "github.com/kailas-cloud/shopsearch/internal/usecase/usage"
	"github.com/kailas-cloud/shopsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env:    env,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shopsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend", cfg.Backend.Driver),
		zap.String("collection", cfg.Backend.Collection),
	)

	ctx := context.Background()
	readiness := time.Duration(cfg.Backend.ReadinessTimeout) * time.Second

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Budget counters live in Redis when configured, otherwise in process memory.
	var kv *dbRedis.Store
	if len(cfg.Redis.Addrs) > 0 {
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer kv.Close()
		if err := kv.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
	}

	budget := buildBudget(ctx, cfg.Embedding.Dense, kv, logger)

	// Pass nil interfaces (not typed nil pointers) when no budget is configured.
	var budgetChecker embeddinguc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	embedTimeout := time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond
	dense := buildDenseEmbedder(cfg.Embedding.Dense, budgetChecker, embedTimeout, logger)
	sparse := buildSparseEmbedder(cfg.Embedding.Sparse, embedTimeout, logger)
	logger.Info("Embedders created",
		zap.String("dense_model", cfg.Embedding.Dense.Model),
		zap.Int("dense_dimensions", cfg.Embedding.Dense.Dimensions),
		zap.String("sparse_provider", cfg.Embedding.Sparse.Provider),
		zap.String("sparse_model", cfg.Embedding.Sparse.Model),
	)

	repo := searchrepo.New(store, searchrepo.Options{
		Driver:        cfg.Backend.Driver,
		Collection:    cfg.Backend.Collection,
		DenseVector:   cfg.Search.DenseVector,
		SparseVector:  cfg.Search.SparseVector,
		PrefetchLimit: cfg.Search.PrefetchLimit,
		Fusion:        fusion.Policy(cfg.Search.Fusion),
		RRFK:          cfg.Search.RRFK,
	}, logger)

	searchSvc := searchuc.New(dense, sparse, repo).
		WithTimeout(time.Duration(cfg.Search.TimeoutSec) * time.Second)

	var budgetPinger healthuc.Pinger
	if kv != nil {
		budgetPinger = kv
	}
	healthSvc := healthuc.New(store, dense, sparse, budgetPinger).WithProbeTimeout(readiness)

	server := chiTransport.NewServer(searchSvc, healthSvc, request.Limits{
		Default: cfg.Search.ResultLimit,
		Max:     cfg.Search.MaxLimit,
	}, logger).WithUsage(usageuc.New(budgetReader, cfg.Embedding.Dense.Provider))
	handler := chiTransport.NewRouter(server, chiTransport.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxAge:         cfg.CORS.MaxAgeSec,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.Backend.Driver {
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Host:       cfg.Backend.Qdrant.Host,
			Port:       cfg.Backend.Qdrant.Port,
			APIKey:     cfg.Backend.Qdrant.APIKey,
			UseTLS:     cfg.Backend.Qdrant.UseTLS,
			Collection: cfg.Backend.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: %w", err)
		}
		return s, nil
	case "pgvector":
		s, err := dbPgvector.NewStore(ctx, dbPgvector.Config{
			DSN:       cfg.Backend.Postgres.DSN,
			Table:     cfg.Backend.Collection,
			SparseDim: cfg.Backend.Postgres.SparseDim,
			MaxConns:  cfg.Backend.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("pgvector: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}

// buildBudget returns nil when no token limit is configured.
func buildBudget(
	ctx context.Context, dcfg config.DenseConfig, kv *dbRedis.Store, logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	if !dcfg.Budget.Enabled() {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if dcfg.Budget.Action == "reject" {
		action = embeddinguc.BudgetActionReject
	}
	budget := embeddinguc.NewBudgetTracker(
		dcfg.Provider, dcfg.Budget.DailyTokenLimit, dcfg.Budget.MonthlyTokenLimit, action, logger,
	)
	if kv != nil {
		budget.WithStore(ctx, budgetrepo.New(kv, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	return budget
}

// buildDenseEmbedder assembles the chain: OpenAI -> Instrumented -> Instruction -> Provider.
func buildDenseEmbedder(
	dcfg config.DenseConfig, budget embeddinguc.BudgetChecker,
	timeout time.Duration, logger *zap.Logger,
) *embeddinguc.DenseProvider {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:         dcfg.APIKey,
		BaseURL:        dcfg.BaseURL,
		Model:          dcfg.Model,
		Dimensions:     dcfg.Dimensions,
		SendDimensions: dcfg.SendDimensions,
		Provider:       dcfg.Provider,
		Logger:         logger,
	})

	var embedder domain.DenseEmbedder = embeddinguc.NewInstrumentedEmbedder(
		base, dcfg.Provider, dcfg.Model, budget, logger,
	)
	if dcfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, dcfg.QueryInstruction)
	}

	return embeddinguc.NewDenseProvider(embedder, dcfg.Model, dcfg.Dimensions, timeout, logger)
}

func buildSparseEmbedder(
	scfg config.SparseConfig, timeout time.Duration, logger *zap.Logger,
) *embeddinguc.SparseProvider {
	var embedder domain.SparseEmbedder
	model := scfg.Model
	switch scfg.Provider {
	case "lexical":
		embedder = lexical.New(scfg.VocabSize)
		model = "lexical"
	default:
		embedder = sparseEmb.NewEmbedder(&sparseEmb.Config{
			BaseURL:  scfg.BaseURL,
			Model:    scfg.Model,
			Provider: scfg.Provider,
			Client:   &http.Client{Timeout: timeout},
			Logger:   logger,
		})
	}
	return embeddinguc.NewSparseProvider(embedder, model, timeout, logger)
}
