package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 rotation stored row-major. Row i is the world direction of the rotated
// frame's i-th axis, matching the layout the separating axis tests expect.
type RotationMatrix struct {
	mat [9]float64
}

// QuatToRotationMatrix converts a unit quaternion to a rotation matrix whose rows are the rotated
// basis vectors.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{mat: [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y + w*z), 2 * (x*z - w*y),
		2 * (x*y - w*z), 1 - 2*(x*x+z*z), 2 * (y*z + w*x),
		2 * (x*z + w*y), 2 * (y*z - w*x), 1 - 2*(x*x+y*y),
	}}
}

// Row returns the i-th row.
func (rm *RotationMatrix) Row(i int) r3.Vector {
	return r3.Vector{X: rm.mat[3*i], Y: rm.mat[3*i+1], Z: rm.mat[3*i+2]}
}

// Apply rotates v, equivalent to rotating by the quaternion the matrix was built from.
func (rm *RotationMatrix) Apply(v r3.Vector) r3.Vector {
	return rm.Row(0).Mul(v.X).Add(rm.Row(1).Mul(v.Y)).Add(rm.Row(2).Mul(v.Z))
}
