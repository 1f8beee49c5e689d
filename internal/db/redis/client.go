// Package redis implements db.CounterStore over Redis or Valkey via rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shopsearch/internal/db"
)

var _ db.CounterStore = (*Store)(nil)

const clientName = "shopsearch"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store keeps expiring counters in Redis.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis. Client-side caching is disabled: counters are
// written by every replica and must be read fresh.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return &Store{client: client}, nil
}

// NewStoreForTest wraps an existing client, typically a rueidis mock.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings until the server answers or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for {
		if lastErr = s.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("redis not ready after %s: %w", timeout, lastErr)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Counter returns the integer at key, 0 when missing.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsInt64()
	switch {
	case rueidis.IsRedisNil(err):
		return 0, nil
	case err != nil:
		return 0, &db.Error{Op: db.OpCounter, Err: fmt.Errorf("%s: %w", key, err)}
	}
	return v, nil
}

// AddCounter pipelines INCRBY with EXPIRE NX in one round trip.
func (s *Store) AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	b := s.client.B()
	res := s.client.DoMulti(ctx,
		b.Incrby().Key(key).Increment(delta).Build(),
		b.Expire().Key(key).Seconds(int64(ttl/time.Second)).Nx().Build(),
	)
	total, err := res[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpAddCounter, Err: fmt.Errorf("%s: %w", key, err)}
	}
	if err := res[1].Error(); err != nil {
		return total, &db.Error{Op: db.OpAddCounter, Err: fmt.Errorf("%s expire: %w", key, err)}
	}
	return total, nil
}
