package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	gjkMaxIter = 64
	gjkEps     = 1e-10
)

// supportPoint is a vertex of the Minkowski difference A - B together with the points of A and B
// that produced it, so witness points can be recovered from barycentric weights.
type supportPoint struct {
	w, a, b r3.Vector
}

type gjkResult struct {
	colliding bool
	distance  float64
	pointA    r3.Vector
	pointB    r3.Vector
}

func minkowskiSupport(a, b Geometry, d r3.Vector) supportPoint {
	pa := a.Support(d)
	pb := b.Support(d.Mul(-1))
	return supportPoint{w: pa.Sub(pb), a: pa, b: pb}
}

// gjk computes the distance between two convex geometries. With earlyExit set the search stops as
// soon as the lower bound on the distance exceeds buffer; the returned distance is then only that
// bound and the witness points are not meaningful.
func gjk(a, b Geometry, initialDir r3.Vector, buffer float64, earlyExit bool) gjkResult {
	d := initialDir
	if d.Norm2() < floatEpsilon*floatEpsilon {
		d = r3.Vector{X: 1}
	}

	sp := minkowskiSupport(a, b, d)
	simplex := []supportPoint{sp}
	weights := []float64{1}
	v := sp.w
	lowerBound := 0.0

	for iter := 0; iter < gjkMaxIter; iter++ {
		vv := v.Norm2()
		if vv < 1e-20 {
			return gjkResult{colliding: true}
		}
		vNorm := math.Sqrt(vv)

		sp = minkowskiSupport(a, b, v.Mul(-1))

		// Every point of the Minkowski difference satisfies x.v/|v| >= w.v/|v|.
		if lb := v.Dot(sp.w) / vNorm; lb > lowerBound {
			lowerBound = lb
		}
		if earlyExit && lowerBound > buffer {
			return gjkResult{distance: lowerBound}
		}

		if vv-v.Dot(sp.w) <= gjkEps*vv || containsSupport(simplex, sp) {
			break
		}

		simplex = append(simplex, sp)
		switch len(simplex) {
		case 2:
			v, simplex, weights = gjkClosestOnSegment(simplex[0], simplex[1])
		case 3:
			v, simplex, weights = gjkClosestOnTriangle(simplex[0], simplex[1], simplex[2])
		case 4:
			v, simplex, weights = gjkClosestOnTetrahedron(simplex)
			if weights == nil {
				return gjkResult{colliding: true}
			}
		}
	}

	res := gjkResult{distance: v.Norm()}
	for i, s := range simplex {
		res.pointA = res.pointA.Add(s.a.Mul(weights[i]))
		res.pointB = res.pointB.Add(s.b.Mul(weights[i]))
	}
	if res.distance < 1e-10 {
		res.colliding = true
	}
	return res
}

func containsSupport(simplex []supportPoint, sp supportPoint) bool {
	for _, s := range simplex {
		if s.w.Sub(sp.w).Norm2() < 1e-24 {
			return true
		}
	}
	return false
}

// gjkClosestOnSegment returns the closest point on segment [a,b] to the origin, the reduced simplex
// and the barycentric weights over it.
func gjkClosestOnSegment(a, b supportPoint) (r3.Vector, []supportPoint, []float64) {
	ab := b.w.Sub(a.w)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return a.w, []supportPoint{a}, []float64{1}
	}
	t := a.w.Mul(-1).Dot(ab) / denom
	if t <= 0 {
		return a.w, []supportPoint{a}, []float64{1}
	}
	if t >= 1 {
		return b.w, []supportPoint{b}, []float64{1}
	}
	return a.w.Add(ab.Mul(t)), []supportPoint{a, b}, []float64{1 - t, t}
}

// gjkClosestOnTriangle returns the closest point on triangle [a,b,c] to the origin using Ericson's
// Voronoi region method from "Real-Time Collision Detection".
func gjkClosestOnTriangle(a, b, c supportPoint) (r3.Vector, []supportPoint, []float64) {
	ab := b.w.Sub(a.w)
	ac := c.w.Sub(a.w)
	ao := a.w.Mul(-1)

	d1 := ab.Dot(ao)
	d2 := ac.Dot(ao)
	if d1 <= 0 && d2 <= 0 {
		return a.w, []supportPoint{a}, []float64{1}
	}

	bo := b.w.Mul(-1)
	d3 := ab.Dot(bo)
	d4 := ac.Dot(bo)
	if d3 >= 0 && d4 <= d3 {
		return b.w, []supportPoint{b}, []float64{1}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.w.Add(ab.Mul(v)), []supportPoint{a, b}, []float64{1 - v, v}
	}

	co := c.w.Mul(-1)
	d5 := ab.Dot(co)
	d6 := ac.Dot(co)
	if d6 >= 0 && d5 <= d6 {
		return c.w, []supportPoint{c}, []float64{1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.w.Add(ac.Mul(w)), []supportPoint{a, c}, []float64{1 - w, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.w.Add(c.w.Sub(b.w).Mul(w)), []supportPoint{b, c}, []float64{1 - w, w}
	}

	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.w.Add(ab.Mul(v)).Add(ac.Mul(w)), []supportPoint{a, b, c}, []float64{1 - v - w, v, w}
}

// gjkOriginInTetrahedron checks whether the origin is on the interior side of every face of a
// non-degenerate tetrahedron.
func gjkOriginInTetrahedron(pts []supportPoint) bool {
	volume := pts[1].w.Sub(pts[0].w).Cross(pts[2].w.Sub(pts[0].w)).Dot(pts[3].w.Sub(pts[0].w))
	if math.Abs(volume) < 1e-18 {
		return false
	}
	faces := [4][4]int{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	for _, f := range faces {
		p0, p1, p2 := pts[f[0]].w, pts[f[1]].w, pts[f[2]].w
		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		dOrigin := normal.Dot(p0.Mul(-1))
		dOpp := normal.Dot(pts[f[3]].w.Sub(p0))
		if dOrigin*dOpp < 0 {
			return false
		}
	}
	return true
}

// gjkClosestOnTetrahedron returns the closest point on the tetrahedron to the origin. Nil weights
// mean the origin is inside.
func gjkClosestOnTetrahedron(pts []supportPoint) (r3.Vector, []supportPoint, []float64) {
	if gjkOriginInTetrahedron(pts) {
		return r3.Vector{}, pts, nil
	}
	faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	bestDist := math.Inf(1)
	var bestV r3.Vector
	var bestS []supportPoint
	var bestW []float64

	for _, f := range faces {
		v, s, w := gjkClosestOnTriangle(pts[f[0]], pts[f[1]], pts[f[2]])
		if d := v.Norm2(); d < bestDist {
			bestDist = d
			bestV = v
			bestS = s
			bestW = w
		}
	}
	return bestV, bestS, bestW
}
