package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
)

// Default named vectors and branch depth of the product collection.
const (
	DefaultDenseVector   = "dense"
	DefaultSparseVector  = "sparse"
	DefaultPrefetchLimit = 50
)

// store is the consumer interface for search operations (ISP).
type store interface {
	QueryFused(ctx context.Context, q *db.FusedQuery) (*db.SearchResult, error)
}

// Options describe the collection layout and the fusion settings.
type Options struct {
	Driver        string
	Collection    string
	DenseVector   string
	SparseVector  string
	PrefetchLimit int
	Fusion        fusion.Policy
	RRFK          int
}

func (o *Options) applyDefaults() {
	if o.DenseVector == "" {
		o.DenseVector = DefaultDenseVector
	}
	if o.SparseVector == "" {
		o.SparseVector = DefaultSparseVector
	}
	if o.PrefetchLimit <= 0 {
		o.PrefetchLimit = DefaultPrefetchLimit
	}
	if o.Fusion == "" {
		o.Fusion = fusion.RRF
	}
	if o.RRFK <= 0 {
		o.RRFK = fusion.DefaultRRFK
	}
}

// Query is one hybrid lookup: both query vectors plus the hard filter.
type Query struct {
	Dense  []float32
	Sparse domain.SparseVector
	Filter filter.Expression
	Limit  int
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store  store
	opts   Options
	logger *zap.Logger
}

// New creates a search repository.
func New(s store, opts Options, logger *zap.Logger) *Repo {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, opts: opts, logger: logger}
}

// Build turns a Query into the driver-level fused query.
func (r *Repo) Build(q Query) *db.FusedQuery {
	sparse := q.Sparse
	return &db.FusedQuery{
		Collection: r.opts.Collection,
		Prefetch: []db.Prefetch{
			{Using: r.opts.DenseVector, Dense: q.Dense, Limit: r.opts.PrefetchLimit},
			{Using: r.opts.SparseVector, Sparse: &sparse, Limit: r.opts.PrefetchLimit},
		},
		Fusion:      r.opts.Fusion,
		RRFK:        r.opts.RRFK,
		Filter:      q.Filter,
		Limit:       q.Limit,
		WithPayload: true,
	}
}

// Search runs the fused query and decodes product payloads.
// Points whose payload does not fit the product schema are skipped and counted.
func (r *Repo) Search(ctx context.Context, q Query) ([]product.Hit, error) {
	start := time.Now()
	sr, err := r.store.QueryFused(ctx, r.Build(q))
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.BackendQueryDuration.WithLabelValues(r.opts.Driver, "error").Observe(elapsed)
		return nil, classify(ctx, r.opts.Collection, err)
	}
	metrics.BackendQueryDuration.WithLabelValues(r.opts.Driver, "success").Observe(elapsed)

	if sr == nil || len(sr.Points) == 0 {
		return []product.Hit{}, nil
	}

	hits := make([]product.Hit, 0, len(sr.Points))
	for _, p := range sr.Points {
		payload, err := product.FromMap(p.Payload)
		if err != nil {
			metrics.BackendPayloadErrorsTotal.WithLabelValues(r.opts.Driver).Inc()
			r.logger.Warn("Skipping point with malformed payload",
				zap.String("collection", r.opts.Collection),
				zap.Stringer("id", p.ID),
				zap.Error(err),
			)
			continue
		}
		hits = append(hits, product.Hit{ID: p.ID, Score: p.Score, Payload: payload})
	}
	return hits, nil
}

// classify maps driver errors onto domain sentinels. Caller cancellation passes through.
func classify(ctx context.Context, collection string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("search %s: %w", collection, ctx.Err())
	}
	if errors.Is(err, db.ErrCollectionNotFound) {
		return fmt.Errorf("search %s: %w: %w", collection, domain.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("search %s: %w: %w", collection, domain.ErrSearchFailed, err)
}
