// Package vectormath provides the vector operations the feed engine needs:
// L2 normalization and weighted mean pooling over fixed-dimension embeddings.
package vectormath

import (
	"errors"
	"math"
)

// ErrInvalidVector is returned for empty or zero-magnitude input where a
// usable vector is required.
var ErrInvalidVector = errors.New("invalid vector: empty or zero magnitude")

// ErrDimensionMismatch is returned when pooled vectors do not share a dimension
// or when the weight count does not match the vector count.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// NormalizeL2 scales vector to unit Euclidean length in place.
// It modifies the slice in-place to save allocations on the per-request
// profile-building path. Returns ErrInvalidVector for an empty or
// zero-magnitude input; a caller that proceeds with such a vector would
// produce garbage similarity scores.
func NormalizeL2(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return ErrInvalidVector
	}

	magnitude := math.Sqrt(sumSquares)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}

	return nil
}

// WeightedMeanPool computes the componentwise weighted average of vectors.
// weights may be nil (uniform weights); otherwise len(weights) must equal
// len(vectors). Weights are re-normalized to sum to 1 before pooling.
//
// The result is NOT renormalized: pooling runs before the final normalize
// step in profile building, and other call sites normalize explicitly, so
// normalization stays a separate, caller-owned step.
func WeightedMeanPool(vectors [][]float32, weights []float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrInvalidVector
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, ErrInvalidVector
	}

	for _, vec := range vectors {
		if len(vec) != dim {
			return nil, ErrDimensionMismatch
		}
	}

	if weights == nil {
		weights = make([]float32, len(vectors))
		for i := range weights {
			weights[i] = 1
		}
	}

	if len(weights) != len(vectors) {
		return nil, ErrDimensionMismatch
	}

	var weightSum float64
	for _, w := range weights {
		weightSum += float64(w)
	}

	if weightSum == 0 {
		return nil, ErrInvalidVector
	}

	pooled := make([]float32, dim)

	for i, vec := range vectors {
		w := float64(weights[i]) / weightSum
		for j, v := range vec {
			pooled[j] += float32(float64(v) * w)
		}
	}

	return pooled, nil
}
