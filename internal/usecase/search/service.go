package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/criteria"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Stage names for search_stage_duration_seconds.
const (
	StageTranslate = "translate"
	StageDense     = "dense"
	StageSparse    = "sparse"
	StageEmbed     = "embed"
	StageQuery     = "query"
	StageTotal     = "total"
)

// Timings holds per-stage wall-clock durations of one search.
type Timings struct {
	Translate time.Duration
	Dense     time.Duration
	Sparse    time.Duration
	Embed     time.Duration
	Query     time.Duration
	Total     time.Duration
}

// Outcome is the ranked result of a search.
type Outcome struct {
	Hits    []product.Hit
	Count   int
	Timings Timings
}

// Service is the search facade: filter translation, hybrid planning, telemetry.
type Service struct {
	planner *Planner
	timeout time.Duration
}

// New creates a search service.
func New(dense DenseEmbedder, sparse SparseEmbedder, repo Repository) *Service {
	return &Service{planner: NewPlanner(dense, sparse, repo)}
}

// WithTimeout bounds embedding plus backend work of each search. Zero disables it.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Search runs one hybrid product search. Filters are translated before any
// embedding work, so an invalid filter never reaches a model or the backend.
func (s *Service) Search(ctx context.Context, req request.Request) (Outcome, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	var out Outcome
	expr, err := criteria.Translate(req.Criteria())
	out.Timings.Translate = time.Since(start)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("invalid").Inc()
		return out, fmt.Errorf("translate filters: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	exec, err := s.planner.Execute(ctx, req.Query(), expr, req.Limit())
	out.Timings.Dense = exec.Dense
	out.Timings.Sparse = exec.Sparse
	out.Timings.Embed = exec.Embed
	out.Timings.Query = exec.Query
	out.Timings.Total = time.Since(start)
	observe(out.Timings)

	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(status(err)).Inc()
		log.Warn("Search failed",
			zap.String("filter", expr.String()),
			zap.Int("limit", req.Limit()),
			zap.Duration("total", out.Timings.Total),
			zap.Error(err),
		)
		return out, err
	}

	out.Hits = exec.Hits
	out.Count = len(exec.Hits)
	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchResultsCount.Observe(float64(out.Count))

	log.Info("Search completed",
		zap.String("filter", expr.String()),
		zap.Int("limit", req.Limit()),
		zap.Int("count", out.Count),
		zap.Int("tokens", exec.Tokens),
		zap.Duration("translate", out.Timings.Translate),
		zap.Duration("dense", out.Timings.Dense),
		zap.Duration("sparse", out.Timings.Sparse),
		zap.Duration("query", out.Timings.Query),
		zap.Duration("total", out.Timings.Total),
	)
	return out, nil
}

func observe(t Timings) {
	stages := []struct {
		name string
		d    time.Duration
	}{
		{StageTranslate, t.Translate},
		{StageDense, t.Dense},
		{StageSparse, t.Sparse},
		{StageEmbed, t.Embed},
		{StageQuery, t.Query},
		{StageTotal, t.Total},
	}
	for _, st := range stages {
		if st.d > 0 {
			metrics.SearchStageDuration.WithLabelValues(st.name).Observe(st.d.Seconds())
		}
	}
}

func status(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrEmbeddingTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_error"
	default:
		return "error"
	}
}
