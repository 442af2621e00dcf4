package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// L2Distance is the euclidean distance between two equal length vectors.
func L2Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// Norm is the euclidean norm of a vector.
func Norm(v []float64) float64 {
	return floats.Norm(v, 2)
}

// Sub returns a - b as a new slice.
func Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.SubTo(out, a, b)
	return out
}

// Add returns a + b as a new slice.
func Add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	floats.AddTo(out, a, b)
	return out
}

// Scaled returns s * v as a new slice.
func Scaled(s float64, v []float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, s, v)
	return out
}

// Unit returns v / |v|. The zero vector is returned unchanged.
func Unit(v []float64) []float64 {
	n := Norm(v)
	if n == 0 {
		return Clone(v)
	}
	return Scaled(1/n, v)
}

// Dot is the dot product of two vectors.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Lerp interpolates from a toward b by t in [0, 1].
func Lerp(a, b []float64, t float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + (b[i]-a[i])*t
	}
	return out
}

// Clone copies a vector.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// HasNaN reports whether any element is NaN.
func HasNaN(v []float64) bool {
	return floats.HasNaN(v)
}

// VectorsAlmostEqual compares two vectors elementwise within epsilon.
func VectorsAlmostEqual(a, b []float64, epsilon float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}
