package search

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/criteria"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	"github.com/kailas-cloud/shopsearch/internal/lexical"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	reposearch "github.com/kailas-cloud/shopsearch/internal/repository/search"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockDense struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (m *mockDense) EmbedDense(_ context.Context, _ string) (domain.DenseResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.DenseResult{}, m.err
	}
	return domain.DenseResult{Vector: m.vec, TotalTokens: 3}, nil
}

type mockSparse struct {
	vec   domain.SparseVector
	err   error
	calls atomic.Int32
}

func (m *mockSparse) EmbedSparse(_ context.Context, _ string) (domain.SparseVector, error) {
	m.calls.Add(1)
	return m.vec, m.err
}

type mockRepo struct {
	hits   []product.Hit
	err    error
	called bool
	last   reposearch.Query
}

func (m *mockRepo) Search(_ context.Context, q reposearch.Query) ([]product.Hit, error) {
	m.called = true
	m.last = q
	return m.hits, m.err
}

func ptr[T any](v T) *T { return &v }

func mustRequest(t *testing.T, query string, c criteria.Criteria, limit *int) request.Request {
	t.Helper()
	req, err := request.New(query, c, limit, request.DefaultLimits())
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

func sampleHits() []product.Hit {
	return []product.Hit{
		{ID: product.NumID(1), Score: 0.032, Payload: product.Payload{Name: "Red Maxi Dress", Colors: "red"}},
		{ID: product.NumID(2), Score: 0.016, Payload: product.Payload{Name: "Red Wrap Dress", Colors: "red"}},
	}
}

// --- Service ---

func TestService_Search_HappyPath(t *testing.T) {
	dense := &mockDense{vec: []float32{0.1, 0.2}}
	sparse := &mockSparse{vec: domain.SparseVector{Indices: []uint32{1}, Values: []float32{1}}}
	repo := &mockRepo{hits: sampleHits()}
	svc := New(dense, sparse, repo)

	out, err := svc.Search(context.Background(), mustRequest(t, "red dress", criteria.Criteria{}, ptr(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Count != 2 || len(out.Hits) != 2 {
		t.Fatalf("expected 2 hits, got count=%d len=%d", out.Count, len(out.Hits))
	}
	if out.Hits[0].ID != product.NumID(1) {
		t.Errorf("expected ranking preserved, got %v first", out.Hits[0].ID)
	}
	if dense.calls.Load() != 1 || sparse.calls.Load() != 1 {
		t.Errorf("expected one call per embedder, got dense=%d sparse=%d", dense.calls.Load(), sparse.calls.Load())
	}
	if repo.last.Limit != 10 || len(repo.last.Dense) != 2 || repo.last.Sparse.Len() != 1 {
		t.Errorf("unexpected repository query: %+v", repo.last)
	}
	if !repo.last.Filter.IsEmpty() {
		t.Errorf("expected no filter, got %s", repo.last.Filter)
	}
	if out.Timings.Total <= 0 {
		t.Error("expected total timing to be recorded")
	}
}

func TestService_Search_ZeroMatchesIsSuccess(t *testing.T) {
	svc := New(&mockDense{vec: []float32{1}}, &mockSparse{}, &mockRepo{hits: []product.Hit{}})

	c := criteria.Criteria{Color: ptr("purple"), Price: &criteria.PriceRange{Min: 0, Max: 1}}
	out, err := svc.Search(context.Background(), mustRequest(t, "tuxedo", c, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Count != 0 || len(out.Hits) != 0 {
		t.Errorf("expected empty outcome, got %+v", out)
	}
}

func TestService_Search_InvalidFilterSkipsEmbedding(t *testing.T) {
	dense := &mockDense{vec: []float32{1}}
	sparse := &mockSparse{}
	repo := &mockRepo{}
	svc := New(dense, sparse, repo)

	tests := []struct {
		name string
		c    criteria.Criteria
	}{
		{"unknown color", criteria.Criteria{Color: ptr("magenta")}},
		{"unknown gender", criteria.Criteria{Gender: ptr(criteria.Gender("kids"))}},
		{"inverted price", criteria.Criteria{Price: &criteria.PriceRange{Min: 80, Max: 20}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), mustRequest(t, "dress", tt.c, nil))
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Fatalf("expected ErrInvalidFilter, got %v", err)
			}
		})
	}
	if dense.calls.Load() != 0 || sparse.calls.Load() != 0 || repo.called {
		t.Errorf("expected no embedding or backend work, got dense=%d sparse=%d repo=%v",
			dense.calls.Load(), sparse.calls.Load(), repo.called)
	}
}

func TestService_Search_EmbeddingFailure(t *testing.T) {
	tests := []struct {
		name   string
		dense  error
		sparse error
		want   error
	}{
		{"dense unavailable", domain.ErrEmbeddingUnavailable, nil, domain.ErrEmbeddingUnavailable},
		{"sparse timeout", nil, domain.ErrEmbeddingTimeout, domain.ErrEmbeddingTimeout},
		{"quota", domain.ErrEmbeddingQuotaExceeded, nil, domain.ErrEmbeddingQuotaExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			svc := New(&mockDense{vec: []float32{1}, err: tt.dense}, &mockSparse{err: tt.sparse}, repo)

			_, err := svc.Search(context.Background(), mustRequest(t, "dress", criteria.Criteria{}, nil))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if repo.called {
				t.Error("backend must not be queried without both vectors")
			}
		})
	}
}

func TestService_Search_BackendFailure(t *testing.T) {
	repo := &mockRepo{err: domain.ErrSearchFailed}
	svc := New(&mockDense{vec: []float32{1}}, &mockSparse{}, repo)

	_, err := svc.Search(context.Background(), mustRequest(t, "dress", criteria.Criteria{}, nil))
	if !errors.Is(err, domain.ErrSearchFailed) {
		t.Fatalf("expected ErrSearchFailed, got %v", err)
	}
}

// --- Planner ---

type blockingSparse struct {
	canceled chan struct{}
}

func (b *blockingSparse) EmbedSparse(ctx context.Context, _ string) (domain.SparseVector, error) {
	select {
	case <-ctx.Done():
		close(b.canceled)
		return domain.SparseVector{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return domain.SparseVector{}, errors.New("sibling was not canceled")
	}
}

func TestPlanner_FailureCancelsSibling(t *testing.T) {
	sparse := &blockingSparse{canceled: make(chan struct{})}
	p := NewPlanner(&mockDense{err: domain.ErrEmbeddingProviderError}, sparse, &mockRepo{})

	_, err := p.Execute(context.Background(), "dress", filter.Expression{}, 5)
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected dense error to win, got %v", err)
	}
	select {
	case <-sparse.canceled:
	default:
		t.Error("expected sparse branch to observe cancellation")
	}
}

func TestService_Search_Timeout(t *testing.T) {
	sparse := &blockingSparse{canceled: make(chan struct{})}
	repo := &mockRepo{}
	svc := New(&mockDense{vec: []float32{1}}, sparse, repo).WithTimeout(20 * time.Millisecond)

	_, err := svc.Search(context.Background(), mustRequest(t, "dress", criteria.Criteria{}, nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if repo.called {
		t.Error("backend must not be queried after an embedding timeout")
	}
}

func TestPlanner_EmptyTextIsEmbeddedAsIs(t *testing.T) {
	dense := &mockDense{vec: []float32{1}}
	sparse := &mockSparse{}
	p := NewPlanner(dense, sparse, &mockRepo{hits: []product.Hit{}})

	exec, err := p.Execute(context.Background(), "", filter.Expression{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exec.Hits) != 0 || dense.calls.Load() != 1 || sparse.calls.Load() != 1 {
		t.Errorf("unexpected execution: %+v", exec)
	}
}

// --- End to end through the repository ---

// catalogStore answers a fused query from a fixed catalogue, honoring the match filters.
type catalogStore struct {
	items []db.Point
	last  *db.FusedQuery
}

func (c *catalogStore) QueryFused(_ context.Context, q *db.FusedQuery) (*db.SearchResult, error) {
	c.last = q
	var out []db.Point
	for _, it := range c.items {
		if matches(it.Payload, q.Filter) {
			out = append(out, it)
		}
	}
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return &db.SearchResult{Points: out}, nil
}

func matches(payload map[string]any, expr filter.Expression) bool {
	for _, c := range expr.Must() {
		switch c.Kind() {
		case filter.KindMatch:
			if payload[c.Key()] != c.Value() {
				return false
			}
		case filter.KindRange:
			price, _ := payload[c.Key()].(float64)
			r := c.Range()
			if r.GTE() != nil && price < *r.GTE() {
				return false
			}
			if r.LTE() != nil && price > *r.LTE() {
				return false
			}
		}
	}
	return true
}

func TestService_Search_RedDressesForWomen(t *testing.T) {
	store := &catalogStore{items: []db.Point{
		{ID: product.NumID(11), Score: 0.9, Payload: map[string]any{
			"Product_name": "Red Maxi Dress", "colors": "red", "Gender": "womens", "Price_corrected": 45.0,
		}},
		{ID: product.NumID(12), Score: 0.8, Payload: map[string]any{
			"Product_name": "Red Polo Shirt", "colors": "red", "Gender": "mens", "Price_corrected": 25.0,
		}},
		{ID: product.NumID(13), Score: 0.7, Payload: map[string]any{
			"Product_name": "Blue Sundress", "colors": "blue", "Gender": "womens", "Price_corrected": 39.0,
		}},
		{ID: product.NumID(14), Score: 0.6, Payload: map[string]any{
			"Product_name": "Red Evening Gown", "colors": "red", "Gender": "womens", "Price_corrected": 180.0,
		}},
	}}
	repo := reposearch.New(store, reposearch.Options{Driver: "catalog", Collection: "products"}, nil)
	svc := New(&mockDense{vec: make([]float32, 384)}, lexical.New(0), repo)

	c := criteria.Criteria{
		Color:  ptr("Red"),
		Gender: ptr(criteria.Womens),
		Price:  &criteria.PriceRange{Min: 20, Max: 80},
	}
	out, err := svc.Search(context.Background(), mustRequest(t, "red dress", c, ptr(10)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Count != 1 || out.Hits[0].ID != product.NumID(11) {
		t.Fatalf("expected only the red maxi dress, got %+v", out.Hits)
	}
	if out.Hits[0].Payload.Name != "Red Maxi Dress" {
		t.Errorf("unexpected payload: %+v", out.Hits[0].Payload)
	}

	fq := store.last
	if len(fq.Prefetch) != 2 || fq.Prefetch[1].Sparse.Len() != 2 {
		t.Errorf("expected dense and two-token sparse branches, got %+v", fq.Prefetch)
	}
	if got := fq.Filter.String(); got != `colors = "red" AND Gender = "womens" AND Price_corrected in [20, 80]` {
		t.Errorf("unexpected filter: %s", got)
	}
}
