package qdrant

import (
	"context"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
)

// QueryFused runs every prefetch branch server-side and fuses them in a single call.
// Qdrant applies its own RRF constant; q.RRFK only affects local fusion drivers.
func (s *Store) QueryFused(ctx context.Context, q *db.FusedQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	req := buildQuery(q)
	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	out := &db.SearchResult{Points: make([]db.Point, 0, len(points))}
	for _, p := range points {
		id, err := pointID(p.GetId())
		if err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: err}
		}
		out.Points = append(out.Points, db.Point{
			ID:      id,
			Score:   float64(p.GetScore()),
			Payload: payloadToMap(p.GetPayload()),
		})
	}
	return out, nil
}

func buildQuery(q *db.FusedQuery) *qdrant.QueryPoints {
	f := buildFilter(q.Filter)

	prefetch := make([]*qdrant.PrefetchQuery, 0, len(q.Prefetch))
	for _, p := range q.Prefetch {
		var query *qdrant.Query
		if p.IsSparse() {
			query = qdrant.NewQuerySparse(p.Sparse.Indices, p.Sparse.Values)
		} else {
			query = qdrant.NewQueryDense(p.Dense)
		}
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query:  query,
			Using:  qdrant.PtrOf(p.Using),
			Filter: f,
			Limit:  qdrant.PtrOf(uint64(p.Limit)),
		})
	}

	return &qdrant.QueryPoints{
		CollectionName: q.Collection,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(fusionMode(q.Fusion)),
		Filter:         f,
		Limit:          qdrant.PtrOf(uint64(q.Limit)),
		WithPayload:    qdrant.NewWithPayload(q.WithPayload),
	}
}

func fusionMode(p fusion.Policy) qdrant.Fusion {
	if p == fusion.DBSF {
		return qdrant.Fusion_DBSF
	}
	return qdrant.Fusion_RRF
}

// buildFilter renders a filter expression as a Qdrant must-filter. Empty yields nil.
func buildFilter(expr filter.Expression) *qdrant.Filter {
	if expr.IsEmpty() {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		switch c.Kind() {
		case filter.KindMatch:
			must = append(must, qdrant.NewMatch(c.Key(), c.Value()))
		case filter.KindRange:
			r := c.Range()
			must = append(must, qdrant.NewRange(c.Key(), &qdrant.Range{
				Gte: r.GTE(),
				Lte: r.LTE(),
			}))
		}
	}
	return &qdrant.Filter{Must: must}
}

func pointID(id *qdrant.PointId) (product.ID, error) {
	if s := id.GetUuid(); s != "" {
		return product.ParseID(s) //nolint:wrapcheck // caller wraps in db.Error
	}
	return product.NumID(id.GetNum()), nil
}

func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	m := make(map[string]any, len(payload))
	for k, v := range payload {
		m[k] = valueToAny(v)
	}
	return m
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return payloadToMap(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = valueToAny(item)
		}
		return list
	default:
		return nil
	}
}
