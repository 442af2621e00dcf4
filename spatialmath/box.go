package spatialmath

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/lynxrobotics/lynx/utils"
)

// Ordered list of box vertices.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// box is an oriented bounding box; a pose and half size fully define it.
type box struct {
	pose            Pose
	centerPt        r3.Vector
	halfSize        [3]float64
	boundingSphereR float64
	label           string
	rotMatrix       *RotationMatrix
	once            sync.Once
}

// NewBox instantiates a new box Geometry centered on pose with full side lengths dims.
func NewBox(pose Pose, dims r3.Vector, label string) (Geometry, error) {
	// Zero dimensions are allowed for degenerate links.
	if dims.X < 0 || dims.Y < 0 || dims.Z < 0 {
		return nil, newBadGeometryDimensionsError("box", dims)
	}
	halfSize := dims.Mul(0.5)
	return &box{
		pose:            pose,
		centerPt:        pose.Point(),
		halfSize:        [3]float64{halfSize.X, halfSize.Y, halfSize.Z},
		boundingSphereR: halfSize.Norm(),
		label:           label,
	}, nil
}

// BoxDimensions returns the full side lengths of g if it is a box.
func BoxDimensions(g Geometry) (r3.Vector, bool) {
	b, ok := g.(*box)
	if !ok {
		return r3.Vector{}, false
	}
	return r3.Vector{X: 2 * b.halfSize[0], Y: 2 * b.halfSize[1], Z: 2 * b.halfSize[2]}, true
}

// String returns a human readable string that represents the box.
func (b *box) String() string {
	return fmt.Sprintf("Type: Box | Position: X:%.3f, Y:%.3f, Z:%.3f | Dims: X:%.3f, Y:%.3f, Z:%.3f",
		b.centerPt.X, b.centerPt.Y, b.centerPt.Z, 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

func (b *box) SetLabel(label string) {
	b.label = label
}

func (b *box) Label() string {
	return b.label
}

func (b *box) Pose() Pose {
	return b.pose
}

// Transform premultiplies the box pose with a transform, allowing the box to be moved in space.
func (b *box) Transform(toPremultiply Pose) Geometry {
	p := Compose(toPremultiply, b.pose)
	return &box{
		pose:            p,
		centerPt:        p.Point(),
		halfSize:        b.halfSize,
		boundingSphereR: b.boundingSphereR,
		label:           b.label,
	}
}

// Support returns the vertex of the box furthest along d.
func (b *box) Support(d r3.Vector) r3.Vector {
	rm := b.rotationMatrix()
	result := b.centerPt
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		if d.Dot(axis) >= 0 {
			result = result.Add(axis.Mul(b.halfSize[i]))
		} else {
			result = result.Sub(axis.Mul(b.halfSize[i]))
		}
	}
	return result
}

func (b *box) AABB() AABB {
	rm := b.rotationMatrix()
	var extent r3.Vector
	for i := 0; i < 3; i++ {
		axis := rm.Row(i)
		extent.X += math.Abs(axis.X) * b.halfSize[i]
		extent.Y += math.Abs(axis.Y) * b.halfSize[i]
		extent.Z += math.Abs(axis.Z) * b.halfSize[i]
	}
	return AABB{Min: b.centerPt.Sub(extent), Max: b.centerPt.Add(extent)}
}

func (b *box) BoundingSphere() (r3.Vector, float64) {
	return b.centerPt, b.boundingSphereR
}

func (b *box) Vertices() []r3.Vector {
	verts := make([]r3.Vector, 0, 8)
	for _, vert := range boxVertices {
		verts = append(verts, b.pose.TransformPoint(r3.Vector{
			X: vert.X * b.halfSize[0],
			Y: vert.Y * b.halfSize[1],
			Z: vert.Z * b.halfSize[2],
		}))
	}
	return verts
}

func (b *box) faceNormals() []r3.Vector {
	rm := b.rotationMatrix()
	return []r3.Vector{rm.Row(0), rm.Row(1), rm.Row(2)}
}

func (b *box) edgeDirections() []r3.Vector {
	return b.faceNormals()
}

// rotationMatrix returns the cached matrix if it exists, and generates it if not.
func (b *box) rotationMatrix() *RotationMatrix {
	b.once.Do(func() { b.rotMatrix = b.pose.RotationMatrix() })
	return b.rotMatrix
}

// boxVsBoxCollision reports whether two boxes are within collisionBuffer of each other. When they are
// not, the returned float is a lower bound on their separation.
func boxVsBoxCollision(a, b *box, collisionBuffer float64) (bool, float64) {
	centerDist := b.centerPt.Sub(a.centerPt)

	// Bounding spheres allow an early exit for distant pairs.
	dist := centerDist.Norm() - (a.boundingSphereR + b.boundingSphereR)
	if dist > collisionBuffer {
		return false, dist
	}

	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()

	for i := 0; i < 3; i++ {
		dist = separatingAxisTest(centerDist, rmA.Row(i), a.halfSize, b.halfSize, rmA, rmB)
		if dist > collisionBuffer {
			return false, dist
		}
		dist = separatingAxisTest(centerDist, rmB.Row(i), a.halfSize, b.halfSize, rmA, rmB)
		if dist > collisionBuffer {
			return false, dist
		}
		for j := 0; j < 3; j++ {
			crossProductPlane := rmA.Row(i).Cross(rmB.Row(j))

			// Parallel edges are covered by the face projections.
			if !utils.Float64AlmostEqual(crossProductPlane.Norm(), 0, floatEpsilon) {
				dist = separatingAxisTest(centerDist, crossProductPlane.Normalize(), a.halfSize, b.halfSize, rmA, rmB)
				if dist > collisionBuffer {
					return false, dist
				}
			}
		}
	}
	return true, -1
}

// boxVsBoxMaxGap returns the largest gap over all 15 separating axes and the axis achieving it. A
// nonpositive gap means the boxes overlap.
func boxVsBoxMaxGap(a, b *box) (float64, r3.Vector) {
	centerDist := b.centerPt.Sub(a.centerPt)
	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()

	best := math.Inf(-1)
	var bestAxis r3.Vector
	consider := func(axis r3.Vector) {
		if g := separatingAxisTest(centerDist, axis, a.halfSize, b.halfSize, rmA, rmB); g > best {
			best = g
			bestAxis = axis
		}
	}
	for i := 0; i < 3; i++ {
		consider(rmA.Row(i))
		consider(rmB.Row(i))
		for j := 0; j < 3; j++ {
			cp := rmA.Row(i).Cross(rmB.Row(j))
			if !utils.Float64AlmostEqual(cp.Norm(), 0, floatEpsilon) {
				consider(cp.Normalize())
			}
		}
	}
	if bestAxis.Dot(centerDist) < 0 {
		bestAxis = bestAxis.Mul(-1)
	}
	return best, bestAxis
}

// separatingAxisTest projects two boxes onto the given axis and computes the gap between the
// projections. A positive gap proves the boxes do not collide.
func separatingAxisTest(positionDelta, plane r3.Vector, halfSizeA, halfSizeB [3]float64, rmA, rmB *RotationMatrix) float64 {
	sum := math.Abs(positionDelta.Dot(plane))
	for i := 0; i < 3; i++ {
		sum -= math.Abs(rmA.Row(i).Mul(halfSizeA[i]).Dot(plane))
		sum -= math.Abs(rmB.Row(i).Mul(halfSizeB[i]).Dot(plane))
	}
	return sum
}
