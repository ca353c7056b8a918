package vectormath

import (
	"math"
	"testing"
)

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	return math.Sqrt(sum)
}

func TestNormalizeL2(t *testing.T) {
	t.Run("normalizes to unit length", func(t *testing.T) {
		vec := []float32{3, 4}
		if err := NormalizeL2(vec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// 3-4-5 triangle => (0.6, 0.8)
		const tol = 1e-6
		if math.Abs(float64(vec[0])-0.6) > tol || math.Abs(float64(vec[1])-0.8) > tol {
			t.Errorf("expected (0.6, 0.8), got (%f, %f)", vec[0], vec[1])
		}

		if math.Abs(magnitude(vec)-1) > tol {
			t.Errorf("magnitude should be 1, got %f", magnitude(vec))
		}
	})

	t.Run("nonzero input always yields magnitude 1", func(t *testing.T) {
		vecs := [][]float32{
			{1},
			{0.001, -0.001},
			{5, -7, 11, 13, -17},
		}
		for _, v := range vecs {
			if err := NormalizeL2(v); err != nil {
				t.Fatalf("unexpected error for %v: %v", v, err)
			}

			if math.Abs(magnitude(v)-1) > 1e-6 {
				t.Errorf("magnitude of %v = %f, want 1", v, magnitude(v))
			}
		}
	})

	t.Run("zero vector fails", func(t *testing.T) {
		v := []float32{0, 0, 0}
		if err := NormalizeL2(v); err != ErrInvalidVector {
			t.Errorf("expected ErrInvalidVector, got %v", err)
		}
	})

	t.Run("empty vector fails", func(t *testing.T) {
		if err := NormalizeL2(nil); err != ErrInvalidVector {
			t.Errorf("expected ErrInvalidVector, got %v", ErrInvalidVector)
		}
	})
}

func TestWeightedMeanPool(t *testing.T) {
	t.Run("uniform weights when nil", func(t *testing.T) {
		pooled, err := WeightedMeanPool([][]float32{{2, 0}, {0, 2}}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if pooled[0] != 1 || pooled[1] != 1 {
			t.Errorf("expected (1, 1), got %v", pooled)
		}
	})

	t.Run("weights are renormalized", func(t *testing.T) {
		// Weights 2 and 6 should behave like 0.25 and 0.75.
		pooled, err := WeightedMeanPool([][]float32{{4, 0}, {0, 4}}, []float32{2, 6})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		const tol = 1e-6
		if math.Abs(float64(pooled[0])-1) > tol || math.Abs(float64(pooled[1])-3) > tol {
			t.Errorf("expected (1, 3), got %v", pooled)
		}
	})

	t.Run("order independent", func(t *testing.T) {
		v1 := []float32{1, 2, 3}
		v2 := []float32{-4, 5, 0.5}

		a, err := WeightedMeanPool([][]float32{v1, v2}, []float32{0.3, 0.7})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		b, err := WeightedMeanPool([][]float32{v2, v1}, []float32{0.7, 0.3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for i := range a {
			if math.Abs(float64(a[i])-float64(b[i])) > 1e-6 {
				t.Errorf("component %d differs: %f vs %f", i, a[i], b[i])
			}
		}
	})

	t.Run("result is not renormalized", func(t *testing.T) {
		pooled, err := WeightedMeanPool([][]float32{{0.5, 0}, {0.5, 0}}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if math.Abs(magnitude(pooled)-0.5) > 1e-6 {
			t.Errorf("pooling should not renormalize: magnitude = %f, want 0.5", magnitude(pooled))
		}
	})

	t.Run("dimension mismatch fails", func(t *testing.T) {
		_, err := WeightedMeanPool([][]float32{{1, 2}, {1, 2, 3}}, nil)
		if err != ErrDimensionMismatch {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("weight count mismatch fails", func(t *testing.T) {
		_, err := WeightedMeanPool([][]float32{{1}, {2}}, []float32{1})
		if err != ErrDimensionMismatch {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := WeightedMeanPool(nil, nil)
		if err != ErrInvalidVector {
			t.Errorf("expected ErrInvalidVector, got %v", err)
		}
	})
}
