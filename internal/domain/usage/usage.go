// Package usage describes dense-embedding token consumption over a calendar period.
package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" or "month"; empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: period must be %q or %q", domain.ErrInvalidRequest, PeriodDay, PeriodMonth)
	}
}

// Bounds returns the UTC calendar window of p that contains t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Report is a token usage snapshot. Limit 0 means unlimited, in which case
// Remaining is -1 and the report is never exhausted.
type Report struct {
	Period    Period
	Start     time.Time
	End       time.Time
	Provider  string
	Used      int64
	Limit     int64
	Remaining int64
}

// NewReport builds a report for the window of period containing now.
func NewReport(period Period, now time.Time, provider string, used, limit int64) Report {
	start, end := period.Bounds(now)
	remaining := int64(-1)
	if limit > 0 {
		remaining = max(limit-used, 0)
	}
	return Report{
		Period:    period,
		Start:     start,
		End:       end,
		Provider:  provider,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}
}

// Exhausted reports whether a limit is set and fully consumed.
func (r Report) Exhausted() bool { return r.Limit > 0 && r.Remaining == 0 }

// ResetsAt is when the counter for this period starts over.
func (r Report) ResetsAt() time.Time { return r.End }
