package pgvector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	pgv "github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/shopsearch/internal/db"
	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/fusion"
)

// QueryFused runs the branches concurrently and fuses them locally.
func (s *Store) QueryFused(ctx context.Context, q *db.FusedQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	branches := make([][]db.Point, len(q.Prefetch))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range q.Prefetch {
		g.Go(func() error {
			points, err := s.runBranch(gctx, q, p)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", p.Using, err)
			}
			branches[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	points, err := fuseBranches(q.Fusion, q.RRFK, q.Limit, branches)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	if !q.WithPayload {
		for i := range points {
			points[i].Payload = nil
		}
	}
	return &db.SearchResult{Points: points}, nil
}

func (s *Store) runBranch(ctx context.Context, q *db.FusedQuery, p db.Prefetch) ([]db.Point, error) {
	var vec any
	if p.IsSparse() {
		vec = sparseParam(*p.Sparse, s.sparseDim)
	} else {
		vec = pgv.NewVector(p.Dense)
	}

	sql, args := buildBranchSQL(s.relation(q.Collection), p, q.Filter, vec)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var points []db.Point
	for rows.Next() {
		var (
			id      string
			payload map[string]any
			score   float64
		)
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		pid, err := product.ParseID(id)
		if err != nil {
			return nil, fmt.Errorf("row id: %w", err)
		}
		points = append(points, db.Point{ID: pid, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return points, nil
}

func sparseParam(v domain.SparseVector, dim int) pgv.SparseVector {
	elements := make(map[int32]float32, v.Len())
	for i, idx := range v.Indices {
		elements[int32(idx)] = v.Values[i] //nolint:gosec // vocabulary indices fit in int32
	}
	return pgv.NewSparseVectorFromMap(elements, int32(dim)) //nolint:gosec // dim is configured
}

// buildBranchSQL renders one nearest-neighbour query. $1 is the query vector;
// filter keys and values follow as parameters. Scores are "higher is better":
// cosine similarity for dense, inner product for sparse.
func buildBranchSQL(relation string, p db.Prefetch, expr filter.Expression, vec any) (string, []any) {
	col := pgx.Identifier{p.Using}.Sanitize()
	args := []any{vec}

	op, score := "<=>", "1 - (%s <=> $1)"
	if p.IsSparse() {
		op, score = "<#>", "(%s <#> $1) * -1"
	}

	where, args := buildWhere(expr, args)

	var b strings.Builder
	b.WriteString("SELECT id::text, payload, ")
	fmt.Fprintf(&b, score, col)
	b.WriteString(" AS score FROM ")
	b.WriteString(relation)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	fmt.Fprintf(&b, " ORDER BY %s %s $1", col, op)
	args = append(args, p.Limit)
	b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	return b.String(), args
}

// buildWhere renders the filter over the jsonb payload column.
func buildWhere(expr filter.Expression, args []any) (string, []any) {
	if expr.IsEmpty() {
		return "", args
	}
	parts := make([]string, 0, len(expr.Must()))
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	for _, c := range expr.Must() {
		switch c.Kind() {
		case filter.KindMatch:
			parts = append(parts, fmt.Sprintf("payload->>(%s::text) = %s", next(c.Key()), next(c.Value())))
		case filter.KindRange:
			key := next(c.Key())
			r := c.Range()
			if r.GTE() != nil {
				parts = append(parts, fmt.Sprintf("(payload->>(%s::text))::float8 >= %s", key, next(*r.GTE())))
			}
			if r.LTE() != nil {
				parts = append(parts, fmt.Sprintf("(payload->>(%s::text))::float8 <= %s", key, next(*r.LTE())))
			}
		}
	}
	return strings.Join(parts, " AND "), args
}

func fuseBranches(policy fusion.Policy, k, limit int, branches [][]db.Point) ([]db.Point, error) {
	byID := make(map[product.ID]db.Point)
	lists := make([][]fusion.Candidate, len(branches))
	for i, branch := range branches {
		lists[i] = make([]fusion.Candidate, len(branch))
		for j, p := range branch {
			lists[i][j] = fusion.Candidate{ID: p.ID, Score: p.Score}
			if _, ok := byID[p.ID]; !ok {
				byID[p.ID] = p
			}
		}
	}

	fused, err := fusion.Fuse(policy, lists, k, limit)
	if err != nil {
		return nil, fmt.Errorf("fuse: %w", err)
	}
	out := make([]db.Point, len(fused))
	for i, c := range fused {
		p := byID[c.ID]
		p.Score = c.Score
		out[i] = p
	}
	return out, nil
}
