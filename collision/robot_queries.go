package collision

import (
	"github.com/lynxrobotics/lynx/referenceframe"
)

// Every query takes the forward kinematics of the robot and poses the objects first. A nil fk
// queries the poses from the last SetPosesOnLinks call.

func (m *RobotModule) prepare(fk *referenceframe.FKResult, level GeometryLevel) error {
	if !level.valid() {
		return &ArgumentError{"invalid geometry level"}
	}
	if fk == nil {
		return nil
	}
	return m.SetPosesOnLinks(fk)
}

func (m *RobotModule) runSelf(fk *referenceframe.FKResult, level GeometryLevel, np *narrowPhase, quads []IndexQuad, subset bool) error {
	if err := m.prepare(fk, level); err != nil {
		return err
	}
	if subset {
		return m.selfSubset(level, quads, np.visit)
	}
	return m.selfPairs(level, 0, m.skipFunc(level), np.visit)
}

// SelfIntersect finds intersecting pairs of the robot's own objects.
func (m *RobotModule) SelfIntersect(fk *referenceframe.FKResult, level GeometryLevel, stopEarly bool) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, m.runSelf(fk, level, np, nil, false)
}

// SelfIntersectSubset is SelfIntersect restricted to the given quads.
func (m *RobotModule) SelfIntersectSubset(
	fk *referenceframe.FKResult, level GeometryLevel, quads []IndexQuad, stopEarly bool,
) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, m.runSelf(fk, level, np, quads, true)
}

// SelfDistance measures every non-skipped pair, sorted by distance over the pair's average.
func (m *RobotModule) SelfDistance(fk *referenceframe.FKResult, level GeometryLevel, stopEarly bool) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, m.runSelf(fk, level, np, nil, false)
}

// SelfDistanceSubset is SelfDistance restricted to the given quads.
func (m *RobotModule) SelfDistanceSubset(
	fk *referenceframe.FKResult, level GeometryLevel, quads []IndexQuad, stopEarly bool,
) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, m.runSelf(fk, level, np, quads, true)
}

// SelfContact reports contacts of pairs closer than margin, deepest first.
func (m *RobotModule) SelfContact(
	fk *referenceframe.FKResult, level GeometryLevel, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, m.runSelf(fk, level, np, nil, false)
}

// SelfContactSubset is SelfContact restricted to the given quads.
func (m *RobotModule) SelfContactSubset(
	fk *referenceframe.FKResult, level GeometryLevel, quads []IndexQuad, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, m.runSelf(fk, level, np, quads, true)
}

func (m *RobotModule) runEnvironment(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, np *narrowPhase, quads []IndexQuad, subset bool,
) error {
	if err := m.prepare(fk, level); err != nil {
		return err
	}
	if subset {
		return m.environmentSubset(level, env, quads, np.visit)
	}
	return m.environmentPairs(level, 0, env, np.visit)
}

// EnvironmentIntersect finds robot objects intersecting environment objects.
func (m *RobotModule) EnvironmentIntersect(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, stopEarly bool,
) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, m.runEnvironment(fk, env, level, np, nil, false)
}

// EnvironmentIntersectSubset is EnvironmentIntersect restricted to the given quads.
func (m *RobotModule) EnvironmentIntersectSubset(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, quads []IndexQuad, stopEarly bool,
) (*IntersectResult, error) {
	np := newNarrowPhase(intersectQuery, stopEarly, 0)
	return np.intersect, m.runEnvironment(fk, env, level, np, quads, true)
}

// EnvironmentDistance measures every robot object against every environment object.
func (m *RobotModule) EnvironmentDistance(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, stopEarly bool,
) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, m.runEnvironment(fk, env, level, np, nil, false)
}

// EnvironmentDistanceSubset is EnvironmentDistance restricted to the given quads.
func (m *RobotModule) EnvironmentDistanceSubset(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, quads []IndexQuad, stopEarly bool,
) (*DistanceResult, error) {
	np := newNarrowPhase(distanceQuery, stopEarly, 0)
	return np.distance, m.runEnvironment(fk, env, level, np, quads, true)
}

// EnvironmentContact reports contacts with the environment closer than margin.
func (m *RobotModule) EnvironmentContact(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, m.runEnvironment(fk, env, level, np, nil, false)
}

// EnvironmentContactSubset is EnvironmentContact restricted to the given quads.
func (m *RobotModule) EnvironmentContactSubset(
	fk *referenceframe.FKResult, env *Environment, level GeometryLevel, quads []IndexQuad, stopEarly bool, margin float64,
) (*ContactResult, error) {
	np := newNarrowPhase(contactQuery, stopEarly, margin)
	return np.contact, m.runEnvironment(fk, env, level, np, quads, true)
}
