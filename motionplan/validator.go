package motionplan

import (
	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/referenceframe"
	"github.com/lynxrobotics/lynx/utils"
)

// StateValidator decides whether a configuration may be visited.
type StateValidator interface {
	// InCollision reports whether q is out of bounds or in collision.
	InCollision(q []float64) (bool, error)
	// Limits returns the sampling bounds.
	Limits() []referenceframe.Limit
	// Clone returns a validator that can be used concurrently with the original.
	Clone() StateValidator
}

// CollisionValidator checks configurations of a robot set against a collision engine at one geometry
// level.
type CollisionValidator struct {
	robots *referenceframe.RobotSet
	engine *collision.Engine
	level  collision.GeometryLevel
}

// NewCollisionValidator returns a validator over the robots and engine.
func NewCollisionValidator(robots *referenceframe.RobotSet, engine *collision.Engine, level collision.GeometryLevel) *CollisionValidator {
	return &CollisionValidator{robots: robots, engine: engine, level: level}
}

// InCollision implements StateValidator.
func (cv *CollisionValidator) InCollision(q []float64) (bool, error) {
	if len(q) != len(cv.robots.DoF()) {
		return false, NewDimensionMismatchError(len(q), len(cv.robots.DoF()))
	}
	if !cv.robots.Contains(q) {
		return true, nil
	}
	fks, err := cv.robots.ComputeFK(q)
	if err != nil {
		return false, err
	}
	return cv.engine.InCollision(fks, cv.level)
}

// Limits implements StateValidator.
func (cv *CollisionValidator) Limits() []referenceframe.Limit {
	return cv.robots.DoF()
}

// Clone implements StateValidator. The clone poses its own copy of the robots.
func (cv *CollisionValidator) Clone() StateValidator {
	return &CollisionValidator{robots: cv.robots, engine: cv.engine.Clone(), level: cv.level}
}

// Engine returns the collision engine.
func (cv *CollisionValidator) Engine() *collision.Engine {
	return cv.engine
}

// Robots returns the robot set.
func (cv *CollisionValidator) Robots() *referenceframe.RobotSet {
	return cv.robots
}

// Level returns the geometry level used for checks.
func (cv *CollisionValidator) Level() collision.GeometryLevel {
	return cv.level
}

// ConfigurationConstraint reports whether a configuration in bounds is in collision.
type ConfigurationConstraint func(q []float64) bool

// ConstraintValidator checks configurations against bounds and a pure function, for problems posed
// directly in configuration space.
type ConstraintValidator struct {
	limits   []referenceframe.Limit
	collides ConfigurationConstraint
}

// NewConstraintValidator returns a validator over the limits. A nil constraint means free space.
func NewConstraintValidator(limits []referenceframe.Limit, collides ConfigurationConstraint) *ConstraintValidator {
	return &ConstraintValidator{limits: limits, collides: collides}
}

// InCollision implements StateValidator.
func (cv *ConstraintValidator) InCollision(q []float64) (bool, error) {
	if len(q) != len(cv.limits) {
		return false, NewDimensionMismatchError(len(q), len(cv.limits))
	}
	if !referenceframe.InLimits(cv.limits, q) {
		return true, nil
	}
	return cv.collides != nil && cv.collides(q), nil
}

// Limits implements StateValidator.
func (cv *ConstraintValidator) Limits() []referenceframe.Limit {
	return cv.limits
}

// Clone implements StateValidator. The constraint must be safe for concurrent use.
func (cv *ConstraintValidator) Clone() StateValidator {
	return cv
}

// SegmentInCollision checks the segment (a, b] at spacing resolution.
func SegmentInCollision(v StateValidator, a, b []float64, resolution float64) (bool, error) {
	steps := 1
	if resolution > 0 {
		steps = int(utils.L2Distance(a, b)/resolution) + 1
	}
	for i := 1; i <= steps; i++ {
		collides, err := v.InCollision(utils.Lerp(a, b, float64(i)/float64(steps)))
		if err != nil || collides {
			return collides, err
		}
	}
	return false, nil
}
