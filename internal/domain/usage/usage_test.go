package usage

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodDay, false},
		{"day", PeriodDay, false},
		{"month", PeriodMonth, false},
		{"year", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("ParsePeriod(%q): expected ErrInvalidRequest, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestBounds(t *testing.T) {
	now := time.Date(2024, time.February, 29, 15, 4, 5, 0, time.UTC)

	start, end := PeriodDay.Bounds(now)
	if !start.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %v .. %v", start, end)
	}

	start, end = PeriodMonth.Bounds(now)
	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %v .. %v", start, end)
	}
}

func TestNewReport(t *testing.T) {
	now := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)

	r := NewReport(PeriodMonth, now, "nebius", 384200, 1000000)
	if r.Remaining != 615800 || r.Exhausted() {
		t.Errorf("remaining=%d exhausted=%v", r.Remaining, r.Exhausted())
	}
	if !r.ResetsAt().Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ResetsAt() = %v", r.ResetsAt())
	}

	over := NewReport(PeriodDay, now, "nebius", 1200, 1000)
	if over.Remaining != 0 || !over.Exhausted() {
		t.Errorf("over budget: remaining=%d exhausted=%v", over.Remaining, over.Exhausted())
	}

	unlimited := NewReport(PeriodDay, now, "tei", 50, 0)
	if unlimited.Remaining != -1 || unlimited.Exhausted() {
		t.Errorf("unlimited: remaining=%d exhausted=%v", unlimited.Remaining, unlimited.Exhausted())
	}
}
