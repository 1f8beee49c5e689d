package search

import (
	"context"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	reposearch "github.com/kailas-cloud/shopsearch/internal/repository/search"
)

// Repository executes the fused query against the vector backend.
type Repository interface {
	Search(ctx context.Context, q reposearch.Query) ([]product.Hit, error)
}

// DenseEmbedder vectorizes the query for the semantic branch.
type DenseEmbedder interface {
	EmbedDense(ctx context.Context, text string) (domain.DenseResult, error)
}

// SparseEmbedder vectorizes the query for the lexical branch.
type SparseEmbedder interface {
	EmbedSparse(ctx context.Context, text string) (domain.SparseVector, error)
}
