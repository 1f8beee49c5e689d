// Package qdrant implements db.Store over Qdrant's query API with native
// prefetch branches and server-side fusion.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/shopsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for the gRPC endpoint.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// pointsClient is the subset of *qdrant.Client the store needs.
type pointsClient interface {
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	Close() error
}

// Store queries a Qdrant collection.
type Store struct {
	client     pointsClient
	collection string
}

// NewStore connects to Qdrant. The connection is lazy; use WaitForReady to block until reachable.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

// NewStoreForTest wraps a fake points client.
func NewStoreForTest(c pointsClient, collection string) *Store {
	return &Store{client: c, collection: collection}
}

// Ping checks the server and, when configured, that the collection exists.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if s.collection == "" {
		return nil
	}
	ok, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return &db.Error{Op: db.OpCollectionExists, Err: err}
	}
	if !ok {
		return &db.Error{Op: db.OpCollectionExists, Err: fmt.Errorf("%w: %s", db.ErrCollectionNotFound, s.collection)}
	}
	return nil
}

// Close shuts down the gRPC connection.
func (s *Store) Close() {
	_ = s.client.Close()
}

// WaitForReady polls Ping until Qdrant responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
