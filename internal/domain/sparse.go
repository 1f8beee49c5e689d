package domain

import (
	"fmt"
	"sort"
)

// SparseVector is a weighted bag of lexical features as parallel index/value slices.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// NewSparseVector builds a vector sorted by index. Duplicate indices are rejected.
func NewSparseVector(indices []uint32, values []float32) (SparseVector, error) {
	if len(indices) != len(values) {
		return SparseVector{}, fmt.Errorf("%w: %d indices, %d values",
			ErrInvalidSparseVector, len(indices), len(values))
	}

	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return indices[order[a]] < indices[order[b]] })

	v := SparseVector{
		Indices: make([]uint32, len(indices)),
		Values:  make([]float32, len(values)),
	}
	for i, j := range order {
		v.Indices[i] = indices[j]
		v.Values[i] = values[j]
		if i > 0 && v.Indices[i] == v.Indices[i-1] {
			return SparseVector{}, fmt.Errorf("%w: duplicate index %d", ErrInvalidSparseVector, v.Indices[i])
		}
	}
	return v, nil
}

// SparseFromWeights builds a vector from an index->weight map, dropping zero weights.
func SparseFromWeights(weights map[uint32]float32) SparseVector {
	v := SparseVector{
		Indices: make([]uint32, 0, len(weights)),
		Values:  make([]float32, 0, len(weights)),
	}
	for idx := range weights {
		if weights[idx] != 0 {
			v.Indices = append(v.Indices, idx)
		}
	}
	sort.Slice(v.Indices, func(a, b int) bool { return v.Indices[a] < v.Indices[b] })
	for _, idx := range v.Indices {
		v.Values = append(v.Values, weights[idx])
	}
	return v
}

// Validate checks the parallel-slice and unique-index invariants.
func (v SparseVector) Validate() error {
	if len(v.Indices) != len(v.Values) {
		return fmt.Errorf("%w: %d indices, %d values",
			ErrInvalidSparseVector, len(v.Indices), len(v.Values))
	}
	seen := make(map[uint32]struct{}, len(v.Indices))
	for _, idx := range v.Indices {
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("%w: duplicate index %d", ErrInvalidSparseVector, idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// Len returns the number of non-zero features.
func (v SparseVector) Len() int { return len(v.Indices) }

// Weights returns the vector as an index->weight map.
func (v SparseVector) Weights() map[uint32]float32 {
	m := make(map[uint32]float32, len(v.Indices))
	for i, idx := range v.Indices {
		m[idx] = v.Values[i]
	}
	return m
}
