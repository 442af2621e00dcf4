package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// AABB is a world axis aligned bounding box.
type AABB struct {
	Min r3.Vector
	Max r3.Vector
}

// NewAABBFromPoints returns the smallest AABB containing every point.
func NewAABBFromPoints(pts []r3.Vector) AABB {
	inf := math.Inf(1)
	bb := AABB{Min: r3.Vector{X: inf, Y: inf, Z: inf}, Max: r3.Vector{X: -inf, Y: -inf, Z: -inf}}
	for _, p := range pts {
		bb.Min = r3.Vector{X: math.Min(bb.Min.X, p.X), Y: math.Min(bb.Min.Y, p.Y), Z: math.Min(bb.Min.Z, p.Z)}
		bb.Max = r3.Vector{X: math.Max(bb.Max.X, p.X), Y: math.Max(bb.Max.Y, p.Y), Z: math.Max(bb.Max.Z, p.Z)}
	}
	return bb
}

// Overlaps reports whether the two boxes share any point, allowing for a buffer.
func (bb AABB) Overlaps(other AABB, buffer float64) bool {
	return bb.Min.X-buffer <= other.Max.X && other.Min.X-buffer <= bb.Max.X &&
		bb.Min.Y-buffer <= other.Max.Y && other.Min.Y-buffer <= bb.Max.Y &&
		bb.Min.Z-buffer <= other.Max.Z && other.Min.Z-buffer <= bb.Max.Z
}

// Union returns the smallest AABB containing both boxes.
func (bb AABB) Union(other AABB) AABB {
	return NewAABBFromPoints([]r3.Vector{bb.Min, bb.Max, other.Min, other.Max})
}

// Center returns the midpoint of the box.
func (bb AABB) Center() r3.Vector {
	return bb.Min.Add(bb.Max).Mul(0.5)
}
