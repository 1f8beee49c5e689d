// Package budget persists embedding token counters in the key-value store.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Default counter lifetimes: a daily key outlives its day, a monthly key its month.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	Counter(ctx context.Context, key string) (int64, error)
	AddCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store adapts db.CounterStore to the embedding BudgetStore.
// Keys look like <prefix>budget:<provider>:<window>:<date>.
type Store struct {
	kv   counters
	ttls map[string]time.Duration
}

// New creates a budget store. Non-positive TTLs take the defaults.
func New(kv counters, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthlyTTL
	}
	return &Store{kv: kv, ttls: map[string]time.Duration{
		"daily":   dailyTTL,
		"monthly": monthTTL,
	}}
}

// IncrBy adds val to the counter at key.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.kv.AddCounter(ctx, key, val, s.ttlFor(key)); err != nil {
		return fmt.Errorf("budget add: %w", err)
	}
	return nil
}

// Get returns the counter at key, 0 when it does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.kv.Counter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("budget read: %w", err)
	}
	return v, nil
}

// ttlFor picks the lifetime from the window segment; unknown windows get the longest.
func (s *Store) ttlFor(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		if ttl, ok := s.ttls[parts[len(parts)-2]]; ok {
			return ttl
		}
	}
	return s.ttls["monthly"]
}
