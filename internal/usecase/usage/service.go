package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/shopsearch/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br       BudgetReader
	provider string
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(br BudgetReader, provider string) *Service {
	return &Service{br: br, provider: provider, now: time.Now}
}

// GetReport builds a usage report for the current window of period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	if s.br == nil {
		return domusage.NewReport(period, now, s.provider, 0, 0)
	}

	st := s.br.Status()
	provider := st.Provider
	if provider == "" {
		provider = s.provider
	}
	if period == domusage.PeriodMonth {
		return domusage.NewReport(period, now, provider, st.MonthlyUsed, st.MonthlyLimit)
	}
	return domusage.NewReport(period, now, provider, st.DailyUsed, st.DailyLimit)
}
