package chi

import (
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query   string       `json:"query"`
	Filters *FiltersBody `json:"filters,omitempty"`
	Limit   *int         `json:"limit,omitempty"`
}

// FiltersBody carries the optional user filters. Price is [min, max].
type FiltersBody struct {
	Color  *string   `json:"color,omitempty"`
	Gender *string   `json:"gender,omitempty"`
	Price  []float64 `json:"price,omitempty"`
}

// SearchResponse is the POST /search success body.
type SearchResponse struct {
	Success    bool         `json:"success"`
	Results    []ResultItem `json:"results"`
	Count      int          `json:"count"`
	Query      string       `json:"query"`
	Filters    FiltersBody  `json:"filters"`
	DurationMs float64      `json:"durationMs"`
	Timings    TimingsBody  `json:"timings"`
}

// ResultItem is one ranked product.
type ResultItem struct {
	ID      product.ID      `json:"id"`
	Score   float64         `json:"score"`
	Payload product.Payload `json:"payload"`
}

// TimingsBody reports per-stage latency in milliseconds.
type TimingsBody struct {
	TranslateMs float64 `json:"translateMs"`
	DenseMs     float64 `json:"denseMs"`
	SparseMs    float64 `json:"sparseMs"`
	QueryMs     float64 `json:"queryMs"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageResponse is the GET /usage body. A limit of 0 means unlimited.
type UsageResponse struct {
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	Provider        string    `json:"provider"`
	TokensUsed      int64     `json:"tokensUsed"`
	TokensLimit     int64     `json:"tokensLimit"`
	TokensRemaining int64     `json:"tokensRemaining"`
	Exhausted       bool      `json:"exhausted"`
	ResetsAt        time.Time `json:"resetsAt"`
}

func usageResponse(r domusage.Report) UsageResponse {
	return UsageResponse{
		Period:          string(r.Period),
		PeriodStart:     r.Start,
		PeriodEnd:       r.End,
		Provider:        r.Provider,
		TokensUsed:      r.Used,
		TokensLimit:     r.Limit,
		TokensRemaining: r.Remaining,
		Exhausted:       r.Exhausted(),
		ResetsAt:        r.ResetsAt(),
	}
}

func searchResponse(req request.Request, filters *FiltersBody, out searchuc.Outcome) SearchResponse {
	items := make([]ResultItem, len(out.Hits))
	for i, h := range out.Hits {
		items[i] = ResultItem{ID: h.ID, Score: h.Score, Payload: h.Payload}
	}

	var echo FiltersBody
	if filters != nil {
		echo = *filters
	}

	return SearchResponse{
		Success:    true,
		Results:    items,
		Count:      out.Count,
		Query:      req.Query(),
		Filters:    echo,
		DurationMs: ms(out.Timings.Total),
		Timings: TimingsBody{
			TranslateMs: ms(out.Timings.Translate),
			DenseMs:     ms(out.Timings.Dense),
			SparseMs:    ms(out.Timings.Sparse),
			QueryMs:     ms(out.Timings.Query),
		},
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
