package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// KeyPrefix namespaces budget counters in the shared key-value store.
const KeyPrefix = "shopsearch:"

const persistTimeout = 2 * time.Second

// BudgetAction defines behavior when token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetStatus is a point-in-time view of token consumption. Limits of 0 mean unlimited.
type BudgetStatus struct {
	Provider     string `json:"provider"`
	DailyUsed    int64  `json:"dailyUsed"`
	DailyLimit   int64  `json:"dailyLimit"`
	MonthlyUsed  int64  `json:"monthlyUsed"`
	MonthlyLimit int64  `json:"monthlyLimit"`
	Exceeded     bool   `json:"exceeded"`
}

// budgetWindow is one calendar-aligned counter (UTC day or UTC month).
type budgetWindow struct {
	name   string
	layout string
	floor  func(time.Time) time.Time
	limit  int64
	used   int64
	start  time.Time
}

func dayWindow(limit int64, now time.Time) budgetWindow {
	w := budgetWindow{name: "daily", layout: "2006-01-02", limit: limit, floor: func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}}
	w.start = w.floor(now)
	return w
}

func monthWindow(limit int64, now time.Time) budgetWindow {
	w := budgetWindow{name: "monthly", layout: "2006-01", limit: limit, floor: func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}}
	w.start = w.floor(now)
	return w
}

// roll zeroes the counter once now has crossed into a later window.
func (w *budgetWindow) roll(now time.Time) {
	if s := w.floor(now); s.After(w.start) {
		w.used = 0
		w.start = s
	}
}

func (w *budgetWindow) key(provider string, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", KeyPrefix, provider, w.name, t.UTC().Format(w.layout))
}

func (w *budgetWindow) over() bool { return w.limit > 0 && w.used >= w.limit }

func (w *budgetWindow) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker counts embedding tokens per UTC day and month.
// Check is served from memory; Record updates memory and writes behind to the optional store.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	daily    budgetWindow
	monthly  budgetWindow
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	return newBudgetTracker(provider, dailyLimit, monthlyLimit, action, logger, func() time.Time {
		return time.Now().UTC()
	})
}

func newBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger, now func() time.Time,
) *BudgetTracker {
	t := now()
	return &BudgetTracker{
		provider: provider,
		action:   action,
		daily:    dayWindow(dailyLimit, t),
		monthly:  monthWindow(monthlyLimit, t),
		now:      now,
		logger:   logger,
	}
}

// WithStore attaches a persistence store and seeds the counters from it.
// Load failures are logged and leave the counters at zero.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows() {
		val, err := store.Get(ctx, w.key(b.provider, now))
		if err != nil {
			b.logger.Warn("Failed to load budget counter",
				zap.String("window", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}
	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

func (b *BudgetTracker) windows() []*budgetWindow {
	return []*budgetWindow{&b.daily, &b.monthly}
}

func (b *BudgetTracker) rollLocked() {
	now := b.now()
	for _, w := range b.windows() {
		w.roll(now)
	}
}

func (b *BudgetTracker) exceededLocked() bool {
	return b.daily.over() || b.monthly.over()
}

// Check reports whether another embedding call is allowed.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	if !b.exceededLocked() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

// Record registers consumed tokens after a request.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollLocked()
	now := b.now()
	keys := make([]string, 0, 2)
	for _, w := range b.windows() {
		w.used += tokens
		keys = append(keys, w.key(b.provider, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	// Detached from the request context: a cancelled search still consumed tokens.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", key), zap.Error(err))
		}
	}
}

// RemainingDaily returns tokens left in the daily budget (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.daily.remaining()
}

// RemainingMonthly returns tokens left in the monthly budget (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.monthly.remaining()
}

// Status returns a snapshot of usage and limits.
func (b *BudgetTracker) Status() BudgetStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	return BudgetStatus{
		Provider:     b.provider,
		DailyUsed:    b.daily.used,
		DailyLimit:   b.daily.limit,
		MonthlyUsed:  b.monthly.used,
		MonthlyLimit: b.monthly.limit,
		Exceeded:     b.exceededLocked(),
	}
}
