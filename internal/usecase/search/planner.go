package search

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	reposearch "github.com/kailas-cloud/shopsearch/internal/repository/search"
)

// Planner embeds the query on both branches and runs one fused query.
type Planner struct {
	dense  DenseEmbedder
	sparse SparseEmbedder
	repo   Repository
}

// NewPlanner creates a hybrid query planner.
func NewPlanner(dense DenseEmbedder, sparse SparseEmbedder, repo Repository) *Planner {
	return &Planner{dense: dense, sparse: sparse, repo: repo}
}

// Execution is the planner output with per-stage durations.
type Execution struct {
	Hits   []product.Hit
	Tokens int
	Dense  time.Duration
	Sparse time.Duration
	Embed  time.Duration
	Query  time.Duration
}

// Execute embeds text densely and sparsely in parallel, then queries the backend.
// A failure on either branch cancels the other and fails the search.
func (p *Planner) Execute(
	ctx context.Context, text string, expr filter.Expression, limit int,
) (Execution, error) {
	var (
		out    Execution
		dense  domain.DenseResult
		sparse domain.SparseVector
	)

	embedStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() { out.Dense = time.Since(start) }()

		var err error
		if dense, err = p.dense.EmbedDense(gctx, text); err != nil {
			return fmt.Errorf("embed dense: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer func() { out.Sparse = time.Since(start) }()

		var err error
		if sparse, err = p.sparse.EmbedSparse(gctx, text); err != nil {
			return fmt.Errorf("embed sparse: %w", err)
		}
		return nil
	})
	err := g.Wait()
	out.Embed = time.Since(embedStart)
	if err != nil {
		return out, err //nolint:wrapcheck // branch errors are already wrapped
	}
	out.Tokens = dense.TotalTokens

	queryStart := time.Now()
	hits, err := p.repo.Search(ctx, reposearch.Query{
		Dense:  dense.Vector,
		Sparse: sparse,
		Filter: expr,
		Limit:  limit,
	})
	out.Query = time.Since(queryStart)
	if err != nil {
		return out, fmt.Errorf("hybrid query: %w", err)
	}
	out.Hits = hits
	return out, nil
}
