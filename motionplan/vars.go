package motionplan

import (
	"math/rand"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/referenceframe"
)

// PlanningVars is the per-worker state of a planner call: a validator it may pose freely, its own
// random source and the shared plan metadata.
type PlanningVars struct {
	Validator StateValidator
	// Resolution is the spacing of collision checks along an edge.
	Resolution float64
	Rand       *rand.Rand
	Meta       *PlanMeta
	Logger     logging.Logger

	seed int64
}

// NewPlanningVars returns vars seeded with seed.
func NewPlanningVars(validator StateValidator, resolution float64, seed int64, logger logging.Logger) *PlanningVars {
	return &PlanningVars{
		Validator:  validator,
		Resolution: resolution,
		//nolint:gosec
		Rand:   rand.New(rand.NewSource(seed)),
		Meta:   NewPlanMeta(),
		Logger: logger,
		seed:   seed,
	}
}

// Clone returns vars for a worker: a cloned validator and a random source derived from the seed and
// worker index. The metadata is shared.
func (pv *PlanningVars) Clone(worker int) *PlanningVars {
	seed := pv.seed*7919 + int64(worker) + 1
	return &PlanningVars{
		Validator:  pv.Validator.Clone(),
		Resolution: pv.Resolution,
		//nolint:gosec
		Rand:   rand.New(rand.NewSource(seed)),
		Meta:   pv.Meta,
		Logger: pv.Logger,
		seed:   seed,
	}
}

// InCollision checks a configuration and counts the check.
func (pv *PlanningVars) InCollision(q []float64) (bool, error) {
	pv.Meta.Count(CounterCollisionChecks)
	return pv.Validator.InCollision(q)
}

// SegmentFree reports whether the segment (a, b] is collision free at the vars' resolution.
func (pv *PlanningVars) SegmentFree(a, b []float64) (bool, error) {
	pv.Meta.Count(CounterSegmentChecks)
	collides, err := SegmentInCollision(pv.Validator, a, b, pv.Resolution)
	return !collides, err
}

// PathFree reports whether every point and segment of a path is collision free.
func (pv *PlanningVars) PathFree(path *LinearSplinePath) (bool, error) {
	if path.Len() == 0 {
		return true, nil
	}
	collides, err := pv.InCollision(path.Start())
	if err != nil || collides {
		return false, err
	}
	for i := 1; i < path.Len(); i++ {
		free, err := pv.SegmentFree(path.Waypoints[i-1], path.Waypoints[i])
		if err != nil || !free {
			return false, err
		}
	}
	return true, nil
}

// Sample draws a uniform configuration from the validator's limits.
func (pv *PlanningVars) Sample() []float64 {
	return referenceframe.RandomInputs(pv.Validator.Limits(), pv.Rand)
}
