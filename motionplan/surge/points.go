package surge

import (
	"github.com/samber/lo"

	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/utils"
)

// Role is the part a point plays in a bidirectional search.
type Role int

const (
	// StartState is the initial configuration, the root of the start DAG.
	StartState Role = iota
	// EndState is the goal configuration, the root of the end DAG in bidirectional searches.
	EndState
	// Milestone is a sampled relay either side may connect to.
	Milestone
	// StartDagNode was reached from the start DAG.
	StartDagNode
	// EndDagNode was reached from the end DAG.
	EndDagNode
	// StartDagTarget is a relay only the start DAG may connect to.
	StartDagTarget
	// EndDagTarget is a relay only the end DAG may connect to.
	EndDagTarget
	// ReachedByStartDag is the endpoint of a partial search from the start DAG.
	ReachedByStartDag
	// ReachedByEndDag is the endpoint of a partial search from the end DAG.
	ReachedByEndDag
)

var roleNames = [...]string{
	"start_state", "end_state", "milestone", "start_dag_node", "end_dag_node",
	"start_dag_target", "end_dag_target", "reached_by_start_dag", "reached_by_end_dag",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// Side is the DAG a point belongs to.
type Side int

// Sides of a bidirectional search.
const (
	NoSide Side = iota
	StartSide
	EndSide
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	switch s {
	case StartSide:
		return EndSide
	case EndSide:
		return StartSide
	case NoSide:
	}
	return NoSide
}

// Side returns the DAG a point with this role is part of, or NoSide for targets.
func (r Role) Side() Side {
	switch r {
	case StartState, StartDagNode, ReachedByStartDag:
		return StartSide
	case EndState, EndDagNode, ReachedByEndDag:
		return EndSide
	case Milestone, StartDagTarget, EndDagTarget:
	}
	return NoSide
}

// targetableFrom reports whether an anchor on side may try to connect to a point with this role.
func (r Role) targetableFrom(side Side) bool {
	switch r {
	case Milestone:
		return true
	case StartDagTarget:
		return side == StartSide
	case EndDagTarget:
		return side == EndSide
	default:
		return r.Side() == side.Opposite()
	}
}

// Point is a configuration tracked by the planner.
type Point struct {
	Q    []float64
	Role Role
}

// Points owns every configuration a plan call has seen.
type Points struct {
	points []Point
}

// NewPoints returns an empty set.
func NewPoints() *Points {
	return &Points{}
}

// Add appends q with role and returns its index.
func (p *Points) Add(q []float64, role Role) int {
	p.points = append(p.points, Point{Q: utils.Clone(q), Role: role})
	return len(p.points) - 1
}

// Len returns the number of points.
func (p *Points) Len() int {
	return len(p.points)
}

// Config returns the configuration of point i.
func (p *Points) Config(i int) []float64 {
	return p.points[i].Q
}

// Role returns the role of point i.
func (p *Points) Role(i int) Role {
	return p.points[i].Role
}

// WithRole returns the indices of points whose role is one of roles, in index order.
func (p *Points) WithRole(roles ...Role) []int {
	idx := lo.Range(len(p.points))
	return lo.Filter(idx, func(i, _ int) bool {
		return lo.Contains(roles, p.points[i].Role)
	})
}

// OnSide returns the indices of points in the DAG of side.
func (p *Points) OnSide(side Side) []int {
	return lo.Filter(lo.Range(len(p.points)), func(i, _ int) bool {
		return p.points[i].Role.Side() == side
	})
}

// TargetsFor returns the points an anchor on side may connect to.
func (p *Points) TargetsFor(side Side) []int {
	return lo.Filter(lo.Range(len(p.points)), func(i, _ int) bool {
		return p.points[i].Role.targetableFrom(side)
	})
}

// ConvertAuto applies the role change of a successful connection from anchor to target. A target
// that is not yet in a DAG joins the anchor's side. It reports a meeting when the target is already
// on the opposite side.
func (p *Points) ConvertAuto(anchor, target int) (bool, error) {
	if anchor < 0 || anchor >= len(p.points) || target < 0 || target >= len(p.points) {
		return false, motionplan.NewInternalInvariantError("connection %d -> %d outside %d points", anchor, target, len(p.points))
	}
	side := p.points[anchor].Role.Side()
	if side == NoSide {
		return false, motionplan.NewInternalInvariantError(
			"anchor %d has role %v which is in no DAG", anchor, p.points[anchor].Role)
	}
	role := p.points[target].Role
	if !role.targetableFrom(side) {
		return false, motionplan.NewInternalInvariantError("role %v is not a target of the %v DAG", role, side)
	}
	if role.Side() == side.Opposite() {
		return true, nil
	}
	if side == StartSide {
		p.points[target].Role = StartDagNode
	} else {
		p.points[target].Role = EndDagNode
	}
	return false, nil
}

// AddReached appends the end of a partial search from side.
func (p *Points) AddReached(q []float64, side Side) int {
	if side == EndSide {
		return p.Add(q, ReachedByEndDag)
	}
	return p.Add(q, ReachedByStartDag)
}

func (s Side) String() string {
	switch s {
	case StartSide:
		return "start"
	case EndSide:
		return "end"
	case NoSide:
	}
	return "none"
}
