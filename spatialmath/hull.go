package spatialmath

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Directions closer than this (as 1 - |cos|) are merged when collecting separating axes.
const axisMergeTolerance = 1e-9

// convexHull is a convex polytope given by its vertices in its own frame, plus the face normals and
// edge directions needed by the separating axis test.
type convexHull struct {
	pose          Pose
	local         []r3.Vector
	localNormals  []r3.Vector
	localEdges    []r3.Vector
	localCentroid r3.Vector
	radius        float64
	label         string

	once       sync.Once
	worldVerts []r3.Vector
}

// NewConvexHull builds a hull from the triangles of a closed convex mesh expressed in the frame of
// pose. Duplicate vertices, normals and edge directions are merged.
func NewConvexHull(pose Pose, triangles []*Triangle, label string) (Geometry, error) {
	if len(triangles) == 0 {
		return nil, newEmptyHullError(label)
	}
	h := &convexHull{pose: pose, label: label}
	seen := map[r3.Vector]struct{}{}
	for _, tri := range triangles {
		pts := tri.Points()
		for _, p := range pts {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				h.local = append(h.local, p)
			}
		}
		if n := tri.Normal(); n.Norm2() > 0 {
			h.localNormals = appendUniqueAxis(h.localNormals, n)
		}
		for i := 0; i < 3; i++ {
			if e := pts[(i+1)%3].Sub(pts[i]); e.Norm2() > 0 {
				h.localEdges = appendUniqueAxis(h.localEdges, e.Normalize())
			}
		}
	}
	for _, p := range h.local {
		h.localCentroid = h.localCentroid.Add(p)
	}
	h.localCentroid = h.localCentroid.Mul(1 / float64(len(h.local)))
	for _, p := range h.local {
		h.radius = math.Max(h.radius, p.Sub(h.localCentroid).Norm())
	}
	return h, nil
}

// NewConvexHullFromBox returns the hull with the same shape as a box, used when a link only ships a
// box but a hull level is requested.
func NewConvexHullFromBox(g Geometry) (Geometry, error) {
	b, ok := g.(*box)
	if !ok {
		return nil, errors.Errorf("geometry %q is not a box", g.Label())
	}
	var tris []*Triangle
	v := [8]r3.Vector{}
	for i, vert := range boxVertices {
		v[i] = r3.Vector{X: vert.X * b.halfSize[0], Y: vert.Y * b.halfSize[1], Z: vert.Z * b.halfSize[2]}
	}
	// Two triangles per face.
	for _, f := range [6][4]int{{0, 2, 3, 1}, {4, 5, 7, 6}, {0, 1, 5, 4}, {2, 6, 7, 3}, {0, 4, 6, 2}, {1, 3, 7, 5}} {
		tris = append(tris, NewTriangle(v[f[0]], v[f[1]], v[f[2]]), NewTriangle(v[f[0]], v[f[2]], v[f[3]]))
	}
	return NewConvexHull(b.pose, tris, b.label)
}

func appendUniqueAxis(axes []r3.Vector, axis r3.Vector) []r3.Vector {
	for _, a := range axes {
		if 1-math.Abs(a.Dot(axis)) < axisMergeTolerance {
			return axes
		}
	}
	return append(axes, axis)
}

func (h *convexHull) String() string {
	c := h.pose.TransformPoint(h.localCentroid)
	return fmt.Sprintf("Type: ConvexHull | Centroid: X:%.3f, Y:%.3f, Z:%.3f | Vertices: %d", c.X, c.Y, c.Z, len(h.local))
}

func (h *convexHull) SetLabel(label string) {
	h.label = label
}

func (h *convexHull) Label() string {
	return h.label
}

func (h *convexHull) Pose() Pose {
	return h.pose
}

func (h *convexHull) Transform(toPremultiply Pose) Geometry {
	return &convexHull{
		pose:          Compose(toPremultiply, h.pose),
		local:         h.local,
		localNormals:  h.localNormals,
		localEdges:    h.localEdges,
		localCentroid: h.localCentroid,
		radius:        h.radius,
		label:         h.label,
	}
}

func (h *convexHull) Support(d r3.Vector) r3.Vector {
	localDir := h.pose.Inverse().RotateVector(d)
	best := math.Inf(-1)
	var bestPt r3.Vector
	for _, p := range h.local {
		if dot := p.Dot(localDir); dot > best {
			best = dot
			bestPt = p
		}
	}
	return h.pose.TransformPoint(bestPt)
}

func (h *convexHull) Vertices() []r3.Vector {
	h.once.Do(func() {
		h.worldVerts = make([]r3.Vector, 0, len(h.local))
		for _, p := range h.local {
			h.worldVerts = append(h.worldVerts, h.pose.TransformPoint(p))
		}
	})
	return h.worldVerts
}

func (h *convexHull) AABB() AABB {
	return NewAABBFromPoints(h.Vertices())
}

func (h *convexHull) BoundingSphere() (r3.Vector, float64) {
	return h.pose.TransformPoint(h.localCentroid), h.radius
}

func (h *convexHull) faceNormals() []r3.Vector {
	return h.rotateAll(h.localNormals)
}

func (h *convexHull) edgeDirections() []r3.Vector {
	return h.rotateAll(h.localEdges)
}

func (h *convexHull) rotateAll(dirs []r3.Vector) []r3.Vector {
	out := make([]r3.Vector, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, h.pose.RotateVector(d))
	}
	return out
}
