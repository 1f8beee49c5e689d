// Package pgvector implements db.Store over PostgreSQL with the pgvector extension.
// Each prefetch branch is one SQL query; branches are fused locally.
package pgvector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/kailas-cloud/shopsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultSparseDim matches the BERT WordPiece vocabulary used by SPLADE models.
const DefaultSparseDim = 30522

// Config holds connection and layout parameters.
// Table is the default relation; a FusedQuery collection overrides it.
type Config struct {
	DSN       string
	Table     string
	SparseDim int
	MaxConns  int32
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Store runs branch queries against a products table with columns
// id, payload jsonb and one vector/sparsevec column per named vector.
type Store struct {
	pool      querier
	table     string
	sparseDim int
}

// NewStore creates a connection pool with pgvector types registered on every connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn) //nolint:wrapcheck // surfaced by pool on connect
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return newStore(pool, cfg), nil
}

func newStore(pool querier, cfg Config) *Store {
	if cfg.SparseDim <= 0 {
		cfg.SparseDim = DefaultSparseDim
	}
	return &Store{pool: pool, table: cfg.Table, sparseDim: cfg.SparseDim}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WaitForReady polls Ping until PostgreSQL responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) relation(collection string) string {
	name := s.table
	if name == "" {
		name = collection
	}
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
