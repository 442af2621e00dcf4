// Package spatialmath defines rigid transforms and the convex geometries used by the collision engine.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation and a unit quaternion orientation.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose from a translation and a quaternion. The quaternion is normalized; a zero
// quaternion is treated as the identity rotation.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	n := quat.Abs(orientation)
	if n == 0 {
		orientation = quat.Number{Real: 1}
	} else {
		orientation = quat.Scale(1/n, orientation)
	}
	return Pose{point: point, orientation: orientation}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{point: point, orientation: quat.Number{Real: 1}}
}

// NewPoseFromAxisAngle returns a pose with the given translation and a rotation of theta radians
// around axis.
func NewPoseFromAxisAngle(point, axis r3.Vector, theta float64) Pose {
	if axis.Norm2() == 0 {
		return NewPoseFromPoint(point)
	}
	axis = axis.Normalize()
	s := math.Sin(theta / 2)
	return Pose{
		point:       point,
		orientation: quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s},
	}
}

// Point returns the translation.
func (p Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the unit quaternion.
func (p Pose) Orientation() quat.Number {
	if p.orientation == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return p.orientation
}

// RotationMatrix returns the rotation of the pose as a matrix.
func (p Pose) RotationMatrix() *RotationMatrix {
	return QuatToRotationMatrix(p.Orientation())
}

// TransformPoint maps a point expressed in the pose's frame into the parent frame.
func (p Pose) TransformPoint(v r3.Vector) r3.Vector {
	return p.point.Add(Rotate(p.Orientation(), v))
}

// RotateVector applies only the rotation part of the pose.
func (p Pose) RotateVector(v r3.Vector) r3.Vector {
	return Rotate(p.Orientation(), v)
}

// Inverse returns the transform that undoes p.
func (p Pose) Inverse() Pose {
	conj := quat.Conj(p.Orientation())
	return Pose{point: Rotate(conj, p.point).Mul(-1), orientation: conj}
}

// String returns a human readable representation of the pose.
func (p Pose) String() string {
	o := p.Orientation()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f | W:%.4f I:%.4f J:%.4f K:%.4f}",
		p.point.X, p.point.Y, p.point.Z, o.Real, o.Imag, o.Jmag, o.Kmag)
}

// Compose returns the transform a * b: first b, then a.
func Compose(a, b Pose) Pose {
	return Pose{
		point:       a.TransformPoint(b.point),
		orientation: quat.Mul(a.Orientation(), b.Orientation()),
	}
}

// PoseBetween returns the pose that takes a to b, i.e. Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(a.Inverse(), b)
}

// PoseAlmostEqual compares two poses, treating q and -q as the same rotation.
func PoseAlmostEqual(a, b Pose, eps float64) bool {
	if a.point.Sub(b.point).Norm() > eps {
		return false
	}
	qa, qb := a.Orientation(), b.Orientation()
	d := qa.Real*qb.Real + qa.Imag*qb.Imag + qa.Jmag*qb.Jmag + qa.Kmag*qb.Kmag
	return math.Abs(math.Abs(d)-1) <= eps
}

// Rotate rotates v by the unit quaternion q.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
