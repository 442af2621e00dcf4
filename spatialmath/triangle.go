package spatialmath

import "github.com/golang/geo/r3"

// Triangle is a planar facet of a mesh.
type Triangle struct {
	p0, p1, p2 r3.Vector
}

// NewTriangle creates a triangle from three points.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{p0, p1, p2}
}

// Points returns the vertices of the triangle.
func (t *Triangle) Points() [3]r3.Vector {
	return [3]r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the unit normal given by the right hand rule over p0, p1, p2. Degenerate triangles
// return the zero vector.
func (t *Triangle) Normal() r3.Vector {
	n := t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0))
	if n.Norm2() == 0 {
		return n
	}
	return n.Normalize()
}
