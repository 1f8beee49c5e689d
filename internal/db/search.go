package db

import (
	"fmt"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
)

// Prefetch is one candidate-generation branch of a fused query.
// Exactly one of Dense or Sparse is set.
type Prefetch struct {
	Using  string
	Dense  []float32
	Sparse *domain.SparseVector
	Limit  int
}

// IsSparse reports whether the branch queries a sparse vector.
func (p Prefetch) IsSparse() bool { return p.Sparse != nil }

// FusedQuery is the input for a hybrid search: several prefetch branches
// fused into one ranking. Filter applies to every branch and to the fused result.
type FusedQuery struct {
	Collection  string
	Prefetch    []Prefetch
	Fusion      fusion.Policy
	RRFK        int
	Filter      filter.Expression
	Limit       int
	WithPayload bool
}

// Validate checks the query shape before it reaches a driver.
func (q *FusedQuery) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalidQuery)
	}
	if len(q.Prefetch) == 0 {
		return fmt.Errorf("%w: at least one prefetch is required", ErrInvalidQuery)
	}
	if !q.Fusion.IsValid() {
		return fmt.Errorf("%w: unknown fusion %q", ErrInvalidQuery, q.Fusion)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive", ErrInvalidQuery)
	}
	for i, p := range q.Prefetch {
		if p.Using == "" {
			return fmt.Errorf("%w: prefetch %d: vector name is required", ErrInvalidQuery, i)
		}
		if (p.Sparse == nil) == (len(p.Dense) == 0) {
			return fmt.Errorf("%w: prefetch %d: exactly one of dense or sparse is required", ErrInvalidQuery, i)
		}
		if p.Limit <= 0 {
			return fmt.Errorf("%w: prefetch %d: limit must be positive", ErrInvalidQuery, i)
		}
	}
	return nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Points []Point
}

// Point is a single scored hit with its raw payload.
type Point struct {
	ID      product.ID
	Score   float64
	Payload map[string]any
}
