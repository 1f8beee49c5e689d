// Package filter holds the backend-neutral payload filter used as a hard pre-filter.
package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 32

// Expression is a conjunction of conditions. The zero value matches everything.
type Expression struct {
	must []Condition
}

// And validates and combines conditions with AND semantics.
func And(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	if len(conds) == 0 {
		return Expression{}, nil
	}
	return Expression{must: append([]Condition(nil), conds...)}, nil
}

// Must returns the conditions every point has to satisfy.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// String renders the expression for logs.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "none"
	}
	parts := make([]string, len(e.must))
	for i, c := range e.must {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Kind distinguishes condition types.
type Kind int

// Condition kinds.
const (
	KindMatch Kind = iota + 1
	KindRange
)

// Condition is an exact keyword match or an inclusive numeric range on one payload key.
type Condition struct {
	kind  Kind
	key   string
	value string
	rng   Range
}

// Match creates an exact keyword match condition.
func Match(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{kind: KindMatch, key: key, value: value}, nil
}

// InRange creates a numeric range condition.
func InRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindRange, key: key, rng: r}, nil
}

// Kind returns the condition type.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the payload key.
func (c Condition) Key() string { return c.key }

// Value returns the match value.
func (c Condition) Value() string { return c.value }

// Range returns the range bounds.
func (c Condition) Range() Range { return c.rng }

func (c Condition) String() string {
	if c.kind == KindMatch {
		return fmt.Sprintf("%s = %q", c.key, c.value)
	}
	return c.key + " in " + c.rng.String()
}

// Range is an inclusive numeric interval. A nil bound is open.
type Range struct {
	gte *float64
	lte *float64
}

// NewRange validates bounds: at least one set, finite, and gte <= lte.
func NewRange(gte, lte *float64) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	for _, b := range []*float64{gte, lte} {
		if b != nil && (math.IsNaN(*b) || math.IsInf(*b, 0)) {
			return Range{}, fmt.Errorf("range boundary must be finite")
		}
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Range{}, fmt.Errorf("range lower bound %g exceeds upper bound %g", *gte, *lte)
	}
	return Range{gte: gte, lte: lte}, nil
}

// GTE returns the inclusive lower bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the inclusive upper bound.
func (r Range) LTE() *float64 { return r.lte }

func (r Range) String() string {
	bound := func(b *float64, open string) string {
		if b == nil {
			return open
		}
		return strconv.FormatFloat(*b, 'g', -1, 64)
	}
	return "[" + bound(r.gte, "-inf") + ", " + bound(r.lte, "+inf") + "]"
}
