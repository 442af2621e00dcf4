package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Contact describes the closest approach of two geometries. Depth is positive when they penetrate
// and is the negated separation otherwise. Normal points from the first geometry toward the second.
type Contact struct {
	World1 r3.Vector `json:"world1"`
	World2 r3.Vector `json:"world2"`
	Normal r3.Vector `json:"normal"`
	Depth  float64   `json:"depth"`
}

// ContactBetween returns the contact between a and b when their separation is at most margin.
func ContactBetween(a, b Geometry, margin float64) (Contact, bool) {
	res := closest(a, b)
	if !res.colliding {
		if res.distance > margin {
			return Contact{}, false
		}
		normal := res.pointB.Sub(res.pointA)
		if normal.Norm2() > 0 {
			normal = normal.Normalize()
		}
		return Contact{World1: res.pointA, World2: res.pointB, Normal: normal, Depth: -res.distance}, true
	}

	depth, normal := penetration(a, b)
	if -depth > margin {
		return Contact{}, false
	}
	return Contact{
		World1: a.Support(normal),
		World2: b.Support(normal.Mul(-1)),
		Normal: normal,
		Depth:  depth,
	}, true
}

// penetration finds the minimum translation separating two overlapping polytopes by testing the
// face normals of both and the cross products of their edges. The normal is oriented from a to b.
func penetration(a, b Geometry) (float64, r3.Vector) {
	axes := append(append([]r3.Vector{}, a.faceNormals()...), b.faceNormals()...)
	for _, ea := range a.edgeDirections() {
		for _, eb := range b.edgeDirections() {
			cp := ea.Cross(eb)
			if cp.Norm() > floatEpsilon {
				axes = append(axes, cp.Normalize())
			}
		}
	}

	best := math.Inf(1)
	var bestAxis r3.Vector
	for _, axis := range axes {
		maxA := a.Support(axis).Dot(axis)
		minA := a.Support(axis.Mul(-1)).Dot(axis)
		maxB := b.Support(axis).Dot(axis)
		minB := b.Support(axis.Mul(-1)).Dot(axis)

		// Pushing b along +axis or along -axis.
		if overlap := maxA - minB; overlap < best {
			best = overlap
			bestAxis = axis
		}
		if overlap := maxB - minA; overlap < best {
			best = overlap
			bestAxis = axis.Mul(-1)
		}
	}
	return best, bestAxis
}
