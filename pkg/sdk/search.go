package shopsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/criteria"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

type searchUseCase interface {
	Search(ctx context.Context, req request.Request) (searchuc.Outcome, error)
}

// Search runs a hybrid query. Invalid input wraps ErrInvalidRequest or ErrInvalidFilter.
func (c *Client) Search(ctx context.Context, q Query) (_ Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	var limit *int
	if q.Limit != 0 {
		limit = &q.Limit
	}
	req, err := request.New(q.Text, toCriteria(q), limit, c.limits)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	out, err := c.searchSvc.Search(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}
	c.obs.observeHits(len(out.Hits))
	return fromOutcome(out), nil
}

func toCriteria(q Query) criteria.Criteria {
	var c criteria.Criteria
	if color := strings.TrimSpace(q.Color); color != "" {
		c.Color = &color
	}
	if g := strings.TrimSpace(q.Gender); g != "" {
		gender := criteria.Gender(g)
		c.Gender = &gender
	}
	if q.Price != nil {
		c.Price = &criteria.PriceRange{Min: q.Price.Min, Max: q.Price.Max}
	}
	return c
}

func fromOutcome(out searchuc.Outcome) Result {
	hits := make([]Hit, len(out.Hits))
	for i, h := range out.Hits {
		hits[i] = Hit{
			ID:      h.ID.String(),
			Score:   h.Score,
			Product: fromPayload(h.Payload),
		}
	}
	return Result{
		Hits: hits,
		Timings: Timings{
			Translate: out.Timings.Translate,
			Dense:     out.Timings.Dense,
			Sparse:    out.Timings.Sparse,
			Query:     out.Timings.Query,
			Total:     out.Timings.Total,
		},
	}
}

func fromPayload(p product.Payload) Product {
	return Product{
		Name:          p.Name,
		Price:         p.Price,
		Colors:        p.Colors,
		Pattern:       p.Pattern,
		Description:   p.Description,
		Gender:        p.Gender,
		ImageBase64:   p.ImageBase64,
		ImageFilename: p.ImageFilename,
	}
}
