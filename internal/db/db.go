package db

import (
	"context"
	"time"
)

// Store is the vector backend facade used by the search service.
type Store interface {
	Pinger
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs fused multi-branch nearest-neighbour queries.
type Searcher interface {
	QueryFused(ctx context.Context, q *FusedQuery) (*SearchResult, error)
}

// CounterStore holds expiring integer counters.
type CounterStore interface {
	Pinger
	// Counter returns the value at key, or 0 when the key does not exist.
	Counter(ctx context.Context, key string) (int64, error)
	// AddCounter adds delta and returns the new value. ttl is applied only
	// when the key has no expiry yet, so repeated adds never extend it.
	AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Close()
}
