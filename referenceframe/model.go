// Package referenceframe defines the kinematic models consumed by the planners: joint limits,
// forward kinematics over link frames, and multi-robot sets.
package referenceframe

import (
	"github.com/golang/geo/r3"

	"github.com/lynxrobotics/lynx/spatialmath"
)

// Model is a kinematic model whose configuration maps to one world frame per link.
type Model interface {
	Name() string
	DoF() []Limit
	NumLinks() int
	LinkNames() []string
	ComputeFK(q []float64) (*FKResult, error)
}

// FKResult holds the world frame of every link. A nil entry marks a link that belongs to a disabled
// kinematic chain.
type FKResult struct {
	LinkFrames []*spatialmath.Pose
}

// FKGradientPerturbations are the forward kinematics at x and at x + epsilon*e_i for every
// coordinate i, for finite difference gradients.
type FKGradientPerturbations struct {
	X             []float64
	Epsilon       float64
	FK            *FKResult
	Perturbations []*FKResult
}

// ComputeFKGradientPerturbations evaluates m at q and at every forward perturbation of q.
func ComputeFKGradientPerturbations(m Model, q []float64, epsilon float64) (*FKGradientPerturbations, error) {
	fk, err := m.ComputeFK(q)
	if err != nil {
		return nil, err
	}
	out := &FKGradientPerturbations{
		X:             append([]float64{}, q...),
		Epsilon:       epsilon,
		FK:            fk,
		Perturbations: make([]*FKResult, 0, len(q)),
	}
	x := append([]float64{}, q...)
	for i := range x {
		x[i] += epsilon
		pfk, err := m.ComputeFK(x)
		if err != nil {
			return nil, err
		}
		out.Perturbations = append(out.Perturbations, pfk)
		x[i] = q[i]
	}
	return out, nil
}

type jointType int

const (
	fixedJoint jointType = iota
	revoluteJoint
	prismaticJoint
)

type link struct {
	name     string
	parent   int
	origin   spatialmath.Pose
	joint    jointType
	axis     r3.Vector
	dofIdx   int
	disabled bool
	geometry spatialmath.Geometry
}

// SimpleModel is a tree of links connected by revolute, prismatic or fixed joints. Links are stored
// parents first.
type SimpleModel struct {
	name   string
	links  []link
	limits []Limit
	config *ModelConfig
}

// Name returns the name of the model.
func (m *SimpleModel) Name() string {
	return m.name
}

// DoF returns the joint limits in configuration order.
func (m *SimpleModel) DoF() []Limit {
	return m.limits
}

// NumLinks returns the number of links, including fixed ones.
func (m *SimpleModel) NumLinks() int {
	return len(m.links)
}

// LinkNames returns the link names in link index order.
func (m *SimpleModel) LinkNames() []string {
	names := make([]string, 0, len(m.links))
	for _, l := range m.links {
		names = append(names, l.name)
	}
	return names
}

// LinkGeometry returns the box attached to link i in the link's frame, if any.
func (m *SimpleModel) LinkGeometry(i int) (spatialmath.Geometry, bool) {
	if i < 0 || i >= len(m.links) || m.links[i].geometry == nil {
		return nil, false
	}
	return m.links[i].geometry, true
}

// ModelConfig returns the config the model was parsed from.
func (m *SimpleModel) ModelConfig() *ModelConfig {
	return m.config
}

// ComputeFK returns the world frame of every link at configuration q.
func (m *SimpleModel) ComputeFK(q []float64) (*FKResult, error) {
	if len(q) != len(m.limits) {
		return nil, NewIncorrectDoFError(len(q), len(m.limits))
	}
	poses := make([]spatialmath.Pose, len(m.links))
	res := &FKResult{LinkFrames: make([]*spatialmath.Pose, len(m.links))}
	for i, l := range m.links {
		parent := spatialmath.NewZeroPose()
		if l.parent >= 0 {
			parent = poses[l.parent]
		}
		local := l.origin
		switch l.joint {
		case revoluteJoint:
			local = spatialmath.Compose(local, spatialmath.NewPoseFromAxisAngle(r3.Vector{}, l.axis, q[l.dofIdx]))
		case prismaticJoint:
			local = spatialmath.Compose(local, spatialmath.NewPoseFromPoint(l.axis.Mul(q[l.dofIdx])))
		case fixedJoint:
		}
		poses[i] = spatialmath.Compose(parent, local)
		if !l.disabled {
			p := poses[i]
			res.LinkFrames[i] = &p
		}
	}
	return res, nil
}
