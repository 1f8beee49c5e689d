// Package fusion merges ranked candidate lists into one ranking.
package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

// DefaultRRFK is the Reciprocal Rank Fusion constant (Cormack et al. 2009).
const DefaultRRFK = 60

// Policy names a fusion algorithm.
type Policy string

// Supported policies.
const (
	RRF  Policy = "rrf"
	DBSF Policy = "dbsf"
)

// IsValid reports whether p is a supported policy.
func (p Policy) IsValid() bool { return p == RRF || p == DBSF }

// Candidate is one entry of a ranked list. Lists are ordered best first.
type Candidate struct {
	ID    product.ID
	Score float64
}

// Fuse applies the named policy. limit <= 0 keeps every candidate.
func Fuse(p Policy, lists [][]Candidate, k, limit int) ([]Candidate, error) {
	switch p {
	case RRF:
		return ReciprocalRank(lists, k, limit), nil
	case DBSF:
		return DistributionBased(lists, limit), nil
	default:
		return nil, fmt.Errorf("unknown fusion policy %q", p)
	}
}

// ReciprocalRank scores each candidate as the sum of 1/(k + rank) over the lists
// containing it, rank being 1-based. Only the first occurrence within a list counts.
func ReciprocalRank(lists [][]Candidate, k, limit int) []Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}
	scores := make(map[product.ID]float64)
	for _, list := range lists {
		seen := make(map[product.ID]struct{}, len(list))
		for i, c := range list {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			scores[c.ID] += 1.0 / float64(k+i+1)
		}
	}
	return rank(scores, limit)
}

// DistributionBased normalizes each list to [0,1] using mean +/- 3 standard
// deviations as bounds, then sums the normalized scores per candidate.
func DistributionBased(lists [][]Candidate, limit int) []Candidate {
	scores := make(map[product.ID]float64)
	for _, list := range lists {
		if len(list) == 0 {
			continue
		}
		lo, hi := bounds(list)
		seen := make(map[product.ID]struct{}, len(list))
		for _, c := range list {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			scores[c.ID] += normalize(c.Score, lo, hi)
		}
	}
	return rank(scores, limit)
}

func bounds(list []Candidate) (lo, hi float64) {
	var sum float64
	for _, c := range list {
		sum += c.Score
	}
	mean := sum / float64(len(list))

	var sq float64
	for _, c := range list {
		d := c.Score - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(list)))
	return mean - 3*std, mean + 3*std
}

func normalize(s, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return math.Max(0, math.Min(1, (s-lo)/(hi-lo)))
}

// rank orders by score desc, ID asc, so the output does not depend on list order.
func rank(scores map[product.ID]float64, limit int) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for id, s := range scores {
		out = append(out, Candidate{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID.Less(out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
