package referenceframe

import (
	"math"
	"math/rand"
)

// Limit represents the limits of motion for a single joint.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Range returns Max - Min.
func (l Limit) Range() float64 {
	return l.Max - l.Min
}

// sampleBounds replaces infinite limits with [-999, 999].
func (l Limit) sampleBounds() (float64, float64) {
	lo, hi := l.Min, l.Max
	if math.IsInf(lo, -1) {
		lo = -999
	}
	if math.IsInf(hi, 1) {
		hi = 999
	}
	return lo, hi
}

// RandomInputs samples a configuration uniformly from the given limits.
func RandomInputs(limits []Limit, rSeed *rand.Rand) []float64 {
	if rSeed == nil {
		//nolint:gosec
		rSeed = rand.New(rand.NewSource(1))
	}
	q := make([]float64, 0, len(limits))
	for _, lim := range limits {
		lo, hi := lim.sampleBounds()
		q = append(q, lo+rSeed.Float64()*(hi-lo))
	}
	return q
}

// ClipInputs clamps every coordinate of q into its limit, returning a new slice.
func ClipInputs(limits []Limit, q []float64) []float64 {
	out := make([]float64, len(q))
	for i, v := range q {
		out[i] = math.Max(limits[i].Min, math.Min(limits[i].Max, v))
	}
	return out
}

// InLimits reports whether every coordinate of q lies inside its limit.
func InLimits(limits []Limit, q []float64) bool {
	if len(limits) != len(q) {
		return false
	}
	for i, v := range q {
		if v < limits[i].Min || v > limits[i].Max {
			return false
		}
	}
	return true
}
