package shopsearch

import (
	"context"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
)

type mockSearch struct {
	out     searchuc.Outcome
	err     error
	lastReq request.Request
	calls   int
}

func (m *mockSearch) Search(_ context.Context, req request.Request) (searchuc.Outcome, error) {
	m.calls++
	m.lastReq = req
	return m.out, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return m.report
}

type mockStore struct {
	pingErr error
	closed  bool
	result  *db.SearchResult
	lastQ   *db.FusedQuery
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockStore) QueryFused(_ context.Context, q *db.FusedQuery) (*db.SearchResult, error) {
	m.lastQ = q
	if m.result == nil {
		return &db.SearchResult{}, nil
	}
	return m.result, nil
}

func (m *mockStore) Close() { m.closed = true }

func (m *mockStore) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

type stubDense struct {
	vec []float32
	err error
}

func (s *stubDense) EmbedDense(_ context.Context, _ string) ([]float32, error) {
	return s.vec, s.err
}

type stubSparse struct {
	idx  []uint32
	vals []float32
	err  error
}

func (s *stubSparse) EmbedSparse(_ context.Context, _ string) ([]uint32, []float32, error) {
	return s.idx, s.vals, s.err
}

func newTestClient(s searchUseCase, h healthUseCase, store db.Store) *Client {
	return &Client{
		store:     store,
		searchSvc: s,
		healthSvc: h,
		limits:    request.DefaultLimits(),
	}
}
