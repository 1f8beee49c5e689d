// Package criteria translates shopper-facing filters into payload filter expressions.
package criteria

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
)

// Gender is the audience segment a product is sold to.
type Gender string

// Gender values. All disables the gender predicate.
const (
	Mens   Gender = "mens"
	Womens Gender = "womens"
	All    Gender = "all"
)

// IsValid reports whether g is a known segment.
func (g Gender) IsValid() bool {
	return g == Mens || g == Womens || g == All
}

// Palette lists the colors the catalogue is tagged with.
var Palette = []string{"black", "white", "gray", "red", "green", "blue", "yellow", "purple", "pink"}

// PriceRange is an inclusive [Min, Max] interval.
type PriceRange struct {
	Min float64
	Max float64
}

// Criteria holds the optional filters of a search. A nil field means unconstrained.
type Criteria struct {
	Color  *string
	Gender *Gender
	Price  *PriceRange
}

// IsEmpty reports whether no filter was supplied.
func (c Criteria) IsEmpty() bool {
	return c.Color == nil && c.Gender == nil && c.Price == nil
}

// Translate converts criteria into an AND expression over product payload keys.
// Empty criteria yield an empty expression.
func Translate(c Criteria) (filter.Expression, error) {
	var conds []filter.Condition

	if c.Color != nil {
		color := strings.ToLower(strings.TrimSpace(*c.Color))
		if !slices.Contains(Palette, color) {
			return filter.Expression{}, fmt.Errorf("%w: unknown color %q", domain.ErrInvalidFilter, *c.Color)
		}
		cond, err := filter.Match(product.FieldColors, color)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
		}
		conds = append(conds, cond)
	}

	if c.Gender != nil {
		g := Gender(strings.ToLower(strings.TrimSpace(string(*c.Gender))))
		if !g.IsValid() {
			return filter.Expression{}, fmt.Errorf("%w: unknown gender %q", domain.ErrInvalidFilter, *c.Gender)
		}
		if g != All {
			cond, err := filter.Match(product.FieldGender, string(g))
			if err != nil {
				return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
			}
			conds = append(conds, cond)
		}
	}

	if c.Price != nil {
		cond, err := priceCondition(*c.Price)
		if err != nil {
			return filter.Expression{}, err
		}
		conds = append(conds, cond)
	}

	expr, err := filter.And(conds...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return expr, nil
}

func priceCondition(p PriceRange) (filter.Condition, error) {
	if p.Min < 0 || p.Max < 0 {
		return filter.Condition{}, fmt.Errorf("%w: price bounds must be non-negative", domain.ErrInvalidFilter)
	}
	r, err := filter.NewRange(&p.Min, &p.Max)
	if err != nil {
		return filter.Condition{}, fmt.Errorf("%w: price: %w", domain.ErrInvalidFilter, err)
	}
	cond, err := filter.InRange(product.FieldPrice, r)
	if err != nil {
		return filter.Condition{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return cond, nil
}
