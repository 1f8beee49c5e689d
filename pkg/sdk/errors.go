package shopsearch

import "github.com/kailas-cloud/shopsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrInvalidFilter          = domain.ErrInvalidFilter
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrEmbeddingTimeout       = domain.ErrEmbeddingTimeout
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrBackendUnavailable     = domain.ErrBackendUnavailable
	ErrSearchFailed           = domain.ErrSearchFailed
)
