package shopsearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

func TestNew_NoBackend(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error without backend")
	}
	if !strings.Contains(err.Error(), "backend required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingEmbedders(t *testing.T) {
	_, err := New(context.Background(), WithQdrant("localhost", 6334, ""))
	if err == nil || !strings.Contains(err.Error(), "dense embedder required") {
		t.Fatalf("expected dense embedder error, got %v", err)
	}

	_, err = New(context.Background(),
		WithQdrant("localhost", 6334, ""),
		WithDenseEmbedder(&stubDense{}),
	)
	if err == nil || !strings.Contains(err.Error(), "sparse embedder required") {
		t.Fatalf("expected sparse embedder error, got %v", err)
	}
}

func TestNew_UnknownFusion(t *testing.T) {
	_, err := New(context.Background(),
		WithQdrant("localhost", 6334, ""),
		WithDenseEmbedder(&stubDense{}),
		WithLexicalSparse(0),
		WithFusion("linear"),
	)
	if err == nil || !strings.Contains(err.Error(), "unknown fusion") {
		t.Fatalf("expected fusion error, got %v", err)
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "elastic"}
	_, err := createStore(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected validate error for unknown driver")
	}
}

func TestOptions_Apply(t *testing.T) {
	cfg := &clientConfig{}
	opts := []Option{
		WithPostgres("postgres://localhost/shop"),
		WithCollection("catalog"),
		WithOpenAIDense("http://tei:8081/v1", "none", "bge", 384),
		WithTEISparse("http://tei:8082", "splade"),
		WithQueryInstruction("query: "),
		WithEmbeddingTimeout(time.Second),
		WithFusion("dbsf"),
		WithRRFK(30),
		WithPrefetchLimit(20),
		WithLimits(10, 40),
		WithReadinessTimeout(2 * time.Second),
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver != "pgvector" || cfg.postgresDSN != "postgres://localhost/shop" {
		t.Errorf("postgres: driver=%q dsn=%q", cfg.driver, cfg.postgresDSN)
	}
	if cfg.collection != "catalog" {
		t.Errorf("collection = %q", cfg.collection)
	}
	if cfg.openai == nil || cfg.openai.dims != 384 || cfg.openai.model != "bge" {
		t.Errorf("openai = %+v", cfg.openai)
	}
	if cfg.teiSparse == nil || cfg.teiSparse.baseURL != "http://tei:8082" {
		t.Errorf("tei = %+v", cfg.teiSparse)
	}
	if cfg.fusion != "dbsf" || cfg.rrfK != 30 || cfg.prefetchLimit != 20 {
		t.Errorf("fusion=%q k=%d prefetch=%d", cfg.fusion, cfg.rrfK, cfg.prefetchLimit)
	}
	if cfg.defaultLimit != 10 || cfg.maxLimit != 40 {
		t.Errorf("limits = %d/%d", cfg.defaultLimit, cfg.maxLimit)
	}
	if cfg.embedTimeout != time.Second || cfg.readinessTimeout != 2*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.embedTimeout, cfg.readinessTimeout)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestSearch_MapsQuery(t *testing.T) {
	ms := &mockSearch{out: searchuc.Outcome{
		Hits: []product.Hit{{
			ID:      product.NumID(7),
			Score:   0.5,
			Payload: product.Payload{Name: "Red Dress", Price: 42, Gender: "womens"},
		}},
		Count:   1,
		Timings: searchuc.Timings{Dense: time.Millisecond, Total: 3 * time.Millisecond},
	}}
	c := newTestClient(ms, &mockHealth{}, &mockStore{})

	res, err := c.Search(context.Background(), Query{
		Text:   "  red dress ",
		Color:  "red",
		Gender: GenderWomens,
		Price:  &PriceRange{Min: 20, Max: 80},
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	req := ms.lastReq
	if req.Query() != "red dress" {
		t.Errorf("query = %q", req.Query())
	}
	if req.Limit() != 5 {
		t.Errorf("limit = %d", req.Limit())
	}
	cr := req.Criteria()
	if cr.Color == nil || *cr.Color != "red" {
		t.Errorf("color = %v", cr.Color)
	}
	if cr.Gender == nil || string(*cr.Gender) != "womens" {
		t.Errorf("gender = %v", cr.Gender)
	}
	if cr.Price == nil || cr.Price.Min != 20 || cr.Price.Max != 80 {
		t.Errorf("price = %v", cr.Price)
	}

	if len(res.Hits) != 1 {
		t.Fatalf("hits = %d", len(res.Hits))
	}
	h := res.Hits[0]
	if h.ID != "7" || h.Score != 0.5 || h.Product.Name != "Red Dress" || h.Product.Price != 42 {
		t.Errorf("hit = %+v", h)
	}
	if res.Timings.Dense != time.Millisecond || res.Timings.Total != 3*time.Millisecond {
		t.Errorf("timings = %+v", res.Timings)
	}
}

func TestSearch_NoFilters(t *testing.T) {
	ms := &mockSearch{}
	c := newTestClient(ms, &mockHealth{}, &mockStore{})

	if _, err := c.Search(context.Background(), Query{Text: "shoes", Color: " "}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !ms.lastReq.Criteria().IsEmpty() {
		t.Errorf("expected empty criteria, got %+v", ms.lastReq.Criteria())
	}
	if ms.lastReq.Limit() != 50 {
		t.Errorf("default limit = %d, want 50", ms.lastReq.Limit())
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	ms := &mockSearch{}
	c := newTestClient(ms, &mockHealth{}, &mockStore{})

	tests := []struct {
		name string
		q    Query
	}{
		{"empty text", Query{Text: "   "}},
		{"negative limit", Query{Text: "shoes", Limit: -1}},
		{"limit above max", Query{Text: "shoes", Limit: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tt.q)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
	if ms.calls != 0 {
		t.Errorf("service called %d times for invalid requests", ms.calls)
	}
}

func TestSearch_PropagatesError(t *testing.T) {
	ms := &mockSearch{err: domain.ErrEmbeddingTimeout}
	c := newTestClient(ms, &mockHealth{}, &mockStore{})

	_, err := c.Search(context.Background(), Query{Text: "shoes"})
	if !errors.Is(err, ErrEmbeddingTimeout) {
		t.Errorf("expected ErrEmbeddingTimeout, got %v", err)
	}
}

func TestHealth(t *testing.T) {
	mh := &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			healthuc.ComponentBackend: healthuc.CheckOK,
			healthuc.ComponentDense:   healthuc.CheckError,
		},
	}}
	c := newTestClient(&mockSearch{}, mh, &mockStore{})

	hs := c.Health(context.Background())
	if hs.Status != "degraded" {
		t.Errorf("status = %q", hs.Status)
	}
	if hs.Checks["backend"] != "ok" || hs.Checks["dense_embedding"] != "error" {
		t.Errorf("checks = %v", hs.Checks)
	}
}

func TestPingAndClose(t *testing.T) {
	store := &mockStore{pingErr: errors.New("down")}
	c := newTestClient(&mockSearch{}, &mockHealth{}, store)

	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
	c.Close()
	if !store.closed {
		t.Error("store not closed")
	}
}

func TestWireClient_EndToEnd(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{Points: []db.Point{
		{ID: product.NumID(1), Score: 0.9, Payload: map[string]any{"Product_name": "Blue Jeans", "Price_corrected": 30.0}},
	}}}
	cfg := &clientConfig{
		driver:       "qdrant",
		collection:   "products",
		dense:        &stubDense{vec: []float32{0.1, 0.2, 0.3}},
		lexical:      true,
		embedTimeout: time.Second,
	}
	c := wireClient(store, cfg, nil)

	res, err := c.Search(context.Background(), Query{Text: "blue jeans", Color: "blue"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].Product.Name != "Blue Jeans" {
		t.Fatalf("hits = %+v", res.Hits)
	}

	q := store.lastQ
	if q == nil {
		t.Fatal("store not queried")
	}
	if q.Collection != "products" || q.Fusion != fusion.RRF || q.Limit != 50 {
		t.Errorf("query = %+v", q)
	}
	if len(q.Prefetch) != 2 {
		t.Fatalf("prefetch = %d, want 2", len(q.Prefetch))
	}
	if len(q.Prefetch[0].Dense) != 3 {
		t.Errorf("dense branch = %+v", q.Prefetch[0])
	}
	if q.Prefetch[1].Sparse == nil || len(q.Prefetch[1].Sparse.Indices) != 2 {
		t.Errorf("sparse branch = %+v", q.Prefetch[1].Sparse)
	}
	if got := q.Filter.String(); got != `colors = "blue"` {
		t.Errorf("filter = %q", got)
	}
}

func TestWireClient_InvalidSparseEmbedder(t *testing.T) {
	cfg := &clientConfig{
		driver:       "qdrant",
		collection:   "products",
		dense:        &stubDense{vec: []float32{1}},
		sparse:       &stubSparse{idx: []uint32{3, 3}, vals: []float32{1, 1}},
		embedTimeout: time.Second,
	}
	c := wireClient(&mockStore{}, cfg, nil)

	_, err := c.Search(context.Background(), Query{Text: "shirt"})
	if err == nil {
		t.Fatal("expected error for duplicate sparse indices")
	}
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("search", time.Now(), nil)
	obs.observe("search", time.Now(), errors.New("boom"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "shopsearch_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("series = %d, want 2", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("shopsearch_sdk_operations_total not registered")
	}

	if _, err := newObserver(nil, reg); err != nil {
		t.Errorf("second observer on same registry: %v", err)
	}
}

func TestObserver_Nil(t *testing.T) {
	var obs *observer
	obs.observe("ping", time.Now(), nil)
	obs.observeHits(3)
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("search: %w", ErrInvalidFilter), "invalid"},
		{ErrEmbeddingQuotaExceeded, "quota_exceeded"},
		{context.DeadlineExceeded, "timeout"},
		{ErrBackendUnavailable, "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
