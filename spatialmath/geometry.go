package spatialmath

import (
	"github.com/golang/geo/r3"
)

// floatEpsilon is the tolerance used when deciding whether a direction is degenerate.
const floatEpsilon = 1e-6

// Geometry is a convex collision primitive positioned in the world. Both implementations, boxes and
// convex hulls, are closed polytopes, so every pair can be queried through their support functions.
type Geometry interface {
	// Pose returns the world pose of the geometry's frame.
	Pose() Pose
	// Transform premultiplies the pose of the geometry, moving it in space.
	Transform(toPremultiply Pose) Geometry
	// Support returns the point of the geometry that lies furthest along dir.
	Support(dir r3.Vector) r3.Vector
	// AABB returns the world axis aligned bounding box.
	AABB() AABB
	// BoundingSphere returns the world center and radius of a sphere enclosing the geometry.
	BoundingSphere() (r3.Vector, float64)
	// Vertices returns the world vertices.
	Vertices() []r3.Vector
	Label() string
	SetLabel(string)
	String() string

	// Candidate separating axes contributed by this polytope.
	faceNormals() []r3.Vector
	edgeDirections() []r3.Vector
}

// Intersects reports whether a and b are closer than buffer. Box pairs use the separating axis test;
// every other pair runs GJK with an early exit once the distance provably exceeds the buffer.
func Intersects(a, b Geometry, buffer float64) bool {
	if ba, ok := a.(*box); ok {
		if bb, ok := b.(*box); ok {
			collides, _ := boxVsBoxCollision(ba, bb, buffer)
			return collides
		}
	}
	ca, ra := a.BoundingSphere()
	cb, rb := b.BoundingSphere()
	if cb.Sub(ca).Norm()-(ra+rb) > buffer {
		return false
	}
	res := gjk(a, b, cb.Sub(ca), buffer, true)
	return res.colliding || res.distance <= buffer
}

// Distance returns the euclidean distance between a and b, or 0 when they intersect.
func Distance(a, b Geometry) float64 {
	res := closest(a, b)
	if res.colliding {
		return 0
	}
	return res.distance
}

// ClosestPoints returns the distance between a and b along with the witness point on each geometry.
// When the geometries intersect the distance is 0 and the witness points are unspecified.
func ClosestPoints(a, b Geometry) (float64, r3.Vector, r3.Vector) {
	res := closest(a, b)
	if res.colliding {
		return 0, res.pointA, res.pointB
	}
	return res.distance, res.pointA, res.pointB
}

func closest(a, b Geometry) gjkResult {
	seed := b.Pose().Point().Sub(a.Pose().Point())
	if ba, ok := a.(*box); ok {
		if bb, ok := b.(*box); ok {
			gap, axis := boxVsBoxMaxGap(ba, bb)
			if gap <= 0 {
				return gjkResult{colliding: true}
			}
			seed = axis
		}
	}
	return gjk(a, b, seed, 0, false)
}
