// Package collision answers intersection, distance and contact queries for robots posed by forward
// kinematics, against themselves, each other and a static environment. Per-robot skip and average
// distance tensors prune and normalize the pair checks.
package collision

import (
	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/referenceframe"
)

// Engine groups the robots of a planning problem with their environment.
type Engine struct {
	robots []*RobotModule
	env    *Environment
	logger logging.Logger
}

// NewEngine returns an engine over the given robots. A nil environment is empty.
func NewEngine(logger logging.Logger, env *Environment, robots ...*RobotModule) (*Engine, error) {
	if len(robots) == 0 {
		return nil, errors.New("collision engine needs at least one robot")
	}
	if env == nil {
		env = NewEmptyEnvironment()
	}
	return &Engine{robots: robots, env: env, logger: logger}, nil
}

// Robots returns the robot modules in order.
func (e *Engine) Robots() []*RobotModule {
	return e.robots
}

// Environment returns the static environment.
func (e *Engine) Environment() *Environment {
	return e.env
}

// Clone returns an engine whose robots can be posed independently of e.
func (e *Engine) Clone() *Engine {
	c := &Engine{env: e.env, logger: e.logger}
	for _, r := range e.robots {
		c.robots = append(c.robots, r.Clone())
	}
	return c
}

// SetPoses poses every robot. A nil fks leaves the current poses.
func (e *Engine) SetPoses(fks []*referenceframe.FKResult) error {
	if fks == nil {
		return nil
	}
	if len(fks) != len(e.robots) {
		return NewDimensionMismatchError("fk results", len(fks), len(e.robots))
	}
	for i, r := range e.robots {
		if err := r.SetPosesOnLinks(fks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) multiRobotPairs(level GeometryLevel, visit visitFunc) error {
	for r1 := 0; r1 < len(e.robots); r1++ {
		for r2 := r1 + 1; r2 < len(e.robots); r2++ {
			a, b := e.robots[r1].objects[level], e.robots[r2].objects[level]
			for i := range a {
				for j, oa := range a[i] {
					if !oa.Active() {
						continue
					}
					for k := range b {
						for l, ob := range b[k] {
							if !ob.Active() {
								continue
							}
							stop, err := visit(candidate{
								index: PairIndex{Robot1: r1, Robot2: r2, Quad: NewIndexQuad(i, j, k, l)},
								a:     oa,
								b:     ob,
								avg:   1,
							})
							if err != nil || stop {
								return err
							}
						}
					}
				}
			}
		}
	}
	return nil
}

func (e *Engine) multiRobotSubset(level GeometryLevel, pairs []PairIndex, visit visitFunc) error {
	for _, p := range pairs {
		if p.Robot1 < 0 || p.Robot1 >= len(e.robots) {
			return NewIndexOutOfRangeError("robot", p.Robot1, len(e.robots))
		}
		if p.Robot2 < 0 || p.Robot2 >= len(e.robots) {
			return NewIndexOutOfRangeError("robot", p.Robot2, len(e.robots))
		}
		a, err := e.robots[p.Robot1].Object(level, p.Quad[0][0], p.Quad[0][1])
		if err != nil {
			return err
		}
		b, err := e.robots[p.Robot2].Object(level, p.Quad[1][0], p.Quad[1][1])
		if err != nil {
			return err
		}
		if !a.Active() || !b.Active() {
			continue
		}
		stop, err := visit(candidate{index: p, a: a, b: b, avg: 1})
		if err != nil || stop {
			return err
		}
	}
	return nil
}

func (e *Engine) runMultiRobot(fks []*referenceframe.FKResult, level GeometryLevel, np *narrowPhase, pairs []PairIndex, subset bool) error {
	if !level.valid() {
		return &ArgumentError{"invalid geometry level"}
	}
	if err := e.SetPoses(fks); err != nil {
		return err
	}
	if subset {
		return e.multiRobotSubset(level, pairs, np.visit)
	}
	return e.multiRobotPairs(level, np.visit)
}

// MultiRobotIntersect finds intersecting objects of different robots.
func (e *Engine) MultiRobotIntersect(fks []*referenceframe.FKResult, level GeometryLevel, stopEarly bool) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, e.runMultiRobot(fks, level, np, nil, false)
}

// MultiRobotIntersectSubset is MultiRobotIntersect restricted to the given pairs.
func (e *Engine) MultiRobotIntersectSubset(
	fks []*referenceframe.FKResult, level GeometryLevel, pairs []PairIndex, stopEarly bool,
) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, e.runMultiRobot(fks, level, np, pairs, true)
}

// MultiRobotDistance measures every pair of objects on different robots.
func (e *Engine) MultiRobotDistance(fks []*referenceframe.FKResult, level GeometryLevel, stopEarly bool) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, e.runMultiRobot(fks, level, np, nil, false)
}

// MultiRobotDistanceSubset is MultiRobotDistance restricted to the given pairs.
func (e *Engine) MultiRobotDistanceSubset(
	fks []*referenceframe.FKResult, level GeometryLevel, pairs []PairIndex, stopEarly bool,
) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, e.runMultiRobot(fks, level, np, pairs, true)
}

// MultiRobotContact reports contacts between robots closer than margin.
func (e *Engine) MultiRobotContact(
	fks []*referenceframe.FKResult, level GeometryLevel, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, e.runMultiRobot(fks, level, np, nil, false)
}

// MultiRobotContactSubset is MultiRobotContact restricted to the given pairs.
func (e *Engine) MultiRobotContactSubset(
	fks []*referenceframe.FKResult, level GeometryLevel, pairs []PairIndex, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, e.runMultiRobot(fks, level, np, pairs, true)
}

// InCollision poses every robot and reports whether any self, environment or inter-robot pair
// intersects, stopping at the first hit.
func (e *Engine) InCollision(fks []*referenceframe.FKResult, level GeometryLevel) (bool, error) {
	if err := e.SetPoses(fks); err != nil {
		return false, err
	}
	for _, r := range e.robots {
		res, err := r.SelfIntersect(nil, level, true)
		if err != nil || res.InCollision() {
			return err == nil, err
		}
		res, err = r.EnvironmentIntersect(nil, e.env, level, true)
		if err != nil || res.InCollision() {
			return err == nil, err
		}
	}
	res, err := e.MultiRobotIntersect(nil, level, true)
	if err != nil {
		return false, err
	}
	return res.InCollision(), nil
}
