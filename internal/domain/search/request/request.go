package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/criteria"
)

// MaxQueryLength is the maximum allowed search query length in bytes.
const MaxQueryLength = 4096

// Result limit defaults.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Limits bounds the number of results a request may ask for.
type Limits struct {
	Default int
	Max     int
}

// DefaultLimits returns the built-in result limits.
func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Request is a validated search query.
type Request struct {
	query    string
	criteria criteria.Criteria
	limit    int
}

// New validates and normalizes search parameters. A nil limit takes the default;
// a limit outside [1, Max] is rejected rather than clamped.
func New(query string, c criteria.Criteria, limit *int, limits Limits) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}

	if limits.Max <= 0 {
		limits.Max = MaxLimit
	}
	if limits.Default <= 0 || limits.Default > limits.Max {
		limits.Default = min(DefaultLimit, limits.Max)
	}

	n := limits.Default
	if limit != nil {
		n = *limit
		if n <= 0 || n > limits.Max {
			return Request{}, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidRequest, limits.Max)
		}
	}

	return Request{query: query, criteria: c, limit: n}, nil
}

// Query returns the trimmed search text.
func (r *Request) Query() string { return r.query }

// Criteria returns the filter criteria.
func (r *Request) Criteria() criteria.Criteria { return r.criteria }

// Limit returns the maximum number of results.
func (r *Request) Limit() int { return r.limit }
