package collision

import (
	"github.com/golang/geo/r3"

	"github.com/lynxrobotics/lynx/spatialmath"
)

// Object is a collision primitive attached to a link. Its local geometry is expressed in the link
// frame; SetPose places it in the world and dirties the cached bounding volumes until
// UpdateBoundingVolumes runs.
type Object struct {
	name   string
	local  spatialmath.Geometry
	world  spatialmath.Geometry
	// disabled is set by SetActive; unposed by links without a frame.
	disabled bool
	unposed  bool

	aabb      spatialmath.AABB
	aabbDirty bool

	sphereCenter r3.Vector
	sphereRadius float64
	sphereDirty  bool
}

// NewObject wraps a geometry given in its link frame. The object starts active but with stale bounding
// volumes, so it cannot be queried before a pose is set.
func NewObject(name string, local spatialmath.Geometry) *Object {
	return &Object{
		name:        name,
		local:       local,
		world:       local,
		aabbDirty:   true,
		sphereDirty: true,
	}
}

// NewStaticObject wraps a geometry already in world coordinates with fresh bounding volumes.
func NewStaticObject(name string, world spatialmath.Geometry) *Object {
	o := NewObject(name, world)
	o.UpdateBoundingVolumes()
	return o
}

// Name returns the human readable name.
func (o *Object) Name() string {
	return o.name
}

// Geometry returns the world geometry.
func (o *Object) Geometry() spatialmath.Geometry {
	return o.world
}

// LocalGeometry returns the geometry in the link frame.
func (o *Object) LocalGeometry() spatialmath.Geometry {
	return o.local
}

// Active reports whether the object takes part in queries: it is enabled and its link has a frame.
func (o *Object) Active() bool {
	return !o.disabled && !o.unposed
}

// SetActive enables or disables the object. Posing its link does not change this.
func (o *Object) SetActive(active bool) {
	o.disabled = !active
}

// SetPose moves the object to the given link frame.
func (o *Object) SetPose(linkFrame spatialmath.Pose) {
	o.world = o.local.Transform(linkFrame)
	o.aabbDirty = true
	o.sphereDirty = true
}

// UpdateBoundingVolumes recomputes the cached AABB and bounding sphere.
func (o *Object) UpdateBoundingVolumes() {
	o.aabb = o.world.AABB()
	o.aabbDirty = false
	o.sphereCenter, o.sphereRadius = o.world.BoundingSphere()
	o.sphereDirty = false
}

// AABB returns the cached bounding box, or a StaleCacheError if the pose changed since the last
// refresh.
func (o *Object) AABB() (spatialmath.AABB, error) {
	if o.aabbDirty {
		return spatialmath.AABB{}, NewStaleCacheError(o.name)
	}
	return o.aabb, nil
}

// BoundingSphere returns the cached sphere, or a StaleCacheError if it is out of date.
func (o *Object) BoundingSphere() (r3.Vector, float64, error) {
	if o.sphereDirty {
		return r3.Vector{}, 0, NewStaleCacheError(o.name)
	}
	return o.sphereCenter, o.sphereRadius, nil
}

// Clone returns an independent copy. Geometries are immutable and shared.
func (o *Object) Clone() *Object {
	c := *o
	return &c
}
