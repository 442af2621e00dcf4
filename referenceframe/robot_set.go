package referenceframe

import (
	"math/rand"

	"github.com/pkg/errors"
)

// RobotSet is an ordered group of models planned together. Their configurations are concatenated
// in model order.
type RobotSet struct {
	models  []Model
	offsets []int
	limits  []Limit
}

// NewRobotSet groups models. Model names must be unique.
func NewRobotSet(models ...Model) (*RobotSet, error) {
	if len(models) == 0 {
		return nil, errors.New("robot set needs at least one model")
	}
	rs := &RobotSet{models: models}
	seen := map[string]bool{}
	for _, m := range models {
		if seen[m.Name()] {
			return nil, errors.Errorf("duplicate robot name %q", m.Name())
		}
		seen[m.Name()] = true
		rs.offsets = append(rs.offsets, len(rs.limits))
		rs.limits = append(rs.limits, m.DoF()...)
	}
	return rs, nil
}

// Models returns the models in order.
func (rs *RobotSet) Models() []Model {
	return rs.models
}

// NumRobots returns the number of models in the set.
func (rs *RobotSet) NumRobots() int {
	return len(rs.models)
}

// DoF returns the concatenated joint limits.
func (rs *RobotSet) DoF() []Limit {
	return rs.limits
}

// Split cuts a full configuration into one slice per model. The slices alias q.
func (rs *RobotSet) Split(q []float64) ([][]float64, error) {
	if len(q) != len(rs.limits) {
		return nil, NewIncorrectDoFError(len(q), len(rs.limits))
	}
	out := make([][]float64, len(rs.models))
	for i, m := range rs.models {
		start := rs.offsets[i]
		out[i] = q[start : start+len(m.DoF())]
	}
	return out, nil
}

// ComputeFK returns one FK result per model.
func (rs *RobotSet) ComputeFK(q []float64) ([]*FKResult, error) {
	parts, err := rs.Split(q)
	if err != nil {
		return nil, err
	}
	out := make([]*FKResult, len(parts))
	for i, m := range rs.models {
		if out[i], err = m.ComputeFK(parts[i]); err != nil {
			return nil, errors.Wrapf(err, "robot %q", m.Name())
		}
	}
	return out, nil
}

// Sample draws a uniform configuration from the joint bounds.
func (rs *RobotSet) Sample(rSeed *rand.Rand) []float64 {
	return RandomInputs(rs.limits, rSeed)
}

// Clip clamps q into the joint bounds.
func (rs *RobotSet) Clip(q []float64) []float64 {
	return ClipInputs(rs.limits, q)
}

// Contains reports whether q is inside the joint bounds.
func (rs *RobotSet) Contains(q []float64) bool {
	return InLimits(rs.limits, q)
}
