package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed or incomplete search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidFilter signals filter criteria that cannot be translated.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrEmbeddingUnavailable signals an embedding model that is not initialized.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingTimeout signals an embedding call that exceeded its time budget.
	ErrEmbeddingTimeout = errors.New("embedding timeout")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidSparseVector signals a sparse vector with mismatched or duplicate indices.
	ErrInvalidSparseVector = errors.New("invalid sparse vector")

	// ErrBackendUnavailable signals a vector database failure.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrSearchFailed signals a search that could not be completed.
	ErrSearchFailed = errors.New("search failed")
)
