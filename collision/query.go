package collision

import (
	"github.com/lynxrobotics/lynx/spatialmath"
)

// candidate is a pair that survived the tensor and activity filters.
type candidate struct {
	index PairIndex
	a, b  *Object
	avg   float64
}

// visitFunc handles one candidate and reports whether enumeration should stop.
type visitFunc func(candidate) (bool, error)

type queryKind int

const (
	intersectQuery queryKind = iota
	distanceQuery
	contactQuery
)

// narrowPhase runs the bounding box test and the exact test for one query kind, accumulating into
// the matching result.
type narrowPhase struct {
	kind      queryKind
	stopEarly bool
	margin    float64

	intersect *IntersectResult
	distance  *DistanceResult
	contact   *ContactResult
}

func newNarrowPhase(kind queryKind, stopEarly bool, margin float64) *narrowPhase {
	np := &narrowPhase{kind: kind, stopEarly: stopEarly, margin: margin}
	switch kind {
	case intersectQuery:
		np.intersect = &IntersectResult{}
	case distanceQuery:
		np.distance = &DistanceResult{}
	case contactQuery:
		np.contact = &ContactResult{}
	}
	return np
}

func (np *narrowPhase) visit(c candidate) (bool, error) {
	bbA, err := c.a.AABB()
	if err != nil {
		return true, err
	}
	bbB, err := c.b.AABB()
	if err != nil {
		return true, err
	}
	pair := Pair{Index: c.index, Name1: c.a.Name(), Name2: c.b.Name()}

	switch np.kind {
	case intersectQuery:
		if !bbA.Overlaps(bbB, 0) {
			return false, nil
		}
		if spatialmath.Intersects(c.a.Geometry(), c.b.Geometry(), 0) {
			np.intersect.Pairs = append(np.intersect.Pairs, pair)
			return np.stopEarly, nil
		}
	case distanceQuery:
		// Distances are wanted for every pair, so no box culling here.
		d := spatialmath.Distance(c.a.Geometry(), c.b.Geometry())
		np.distance.insert(DistanceEntry{Pair: pair, Distance: d, Normalized: d / c.avg})
		return np.stopEarly && d <= 0, nil
	case contactQuery:
		if !bbA.Overlaps(bbB, np.margin) {
			return false, nil
		}
		ct, ok := spatialmath.ContactBetween(c.a.Geometry(), c.b.Geometry(), np.margin)
		if !ok {
			return false, nil
		}
		np.contact.insert(ContactEntry{Pair: pair, Contact: ct, Normalized: ct.Depth / c.avg})
		return np.stopEarly && ct.Depth > 0, nil
	}
	return false, nil
}

// selfPairs enumerates each unordered pair of distinct objects of one robot once.
func (m *RobotModule) selfPairs(level GeometryLevel, robot int, skip func(IndexQuad) bool, visit visitFunc) error {
	objs := m.objects[level]
	for i := range objs {
		for j := range objs[i] {
			for k := i; k < len(objs); k++ {
				l0 := 0
				if k == i {
					l0 = j + 1
				}
				for l := l0; l < len(objs[k]); l++ {
					q := NewIndexQuad(i, j, k, l)
					if skip(q) {
						continue
					}
					a, b := objs[i][j], objs[k][l]
					if !a.Active() || !b.Active() {
						continue
					}
					stop, err := visit(candidate{
						index: PairIndex{Robot1: robot, Robot2: robot, Quad: q},
						a:     a,
						b:     b,
						avg:   m.mean(level, q),
					})
					if err != nil || stop {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (m *RobotModule) selfSubset(level GeometryLevel, quads []IndexQuad, visit visitFunc) error {
	skip := m.skipFunc(level)
	for _, q := range quads {
		a, err := m.Object(level, q[0][0], q[0][1])
		if err != nil {
			return err
		}
		b, err := m.Object(level, q[1][0], q[1][1])
		if err != nil {
			return err
		}
		if skip(q) || !a.Active() || !b.Active() {
			continue
		}
		stop, err := visit(candidate{index: PairIndex{Quad: q}, a: a, b: b, avg: m.mean(level, q)})
		if err != nil || stop {
			return err
		}
	}
	return nil
}

func (m *RobotModule) environmentPairs(level GeometryLevel, robot int, env *Environment, visit visitFunc) error {
	for i, objs := range m.objects[level] {
		for j, a := range objs {
			if !a.Active() {
				continue
			}
			for k, list := range env.lists {
				for l, b := range list {
					if !b.Active() {
						continue
					}
					stop, err := visit(candidate{
						index: PairIndex{Robot1: robot, Robot2: EnvironmentRobot, Quad: NewIndexQuad(i, j, k, l)},
						a:     a,
						b:     b,
						avg:   1,
					})
					if err != nil || stop {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (m *RobotModule) environmentSubset(level GeometryLevel, env *Environment, quads []IndexQuad, visit visitFunc) error {
	for _, q := range quads {
		a, err := m.Object(level, q[0][0], q[0][1])
		if err != nil {
			return err
		}
		b, err := env.Object(q[1][0], q[1][1])
		if err != nil {
			return err
		}
		if !a.Active() || !b.Active() {
			continue
		}
		stop, err := visit(candidate{index: PairIndex{Robot2: EnvironmentRobot, Quad: q}, a: a, b: b, avg: 1})
		if err != nil || stop {
			return err
		}
	}
	return nil
}
