package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/utils"
)

// NodeID identifies a node of a PlanningDAG.
type NodeID int

// NoNode is the parent of a root.
const NoNode NodeID = -1

type dagNode struct {
	q        []float64
	parent   NodeID
	inflow   *LinearSplinePath
	children []NodeID
}

// PlanningDAG is a forest of configurations. Every non-root node has exactly one inflow edge, a
// path that starts at its parent's configuration and ends at its own.
type PlanningDAG struct {
	nodes []dagNode
	roots []NodeID
}

// NewPlanningDAG returns an empty DAG.
func NewPlanningDAG() *PlanningDAG {
	return &PlanningDAG{}
}

// AddRoot adds a node without an inflow edge.
func (d *PlanningDAG) AddRoot(q []float64) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, dagNode{q: utils.Clone(q), parent: NoNode})
	d.roots = append(d.roots, id)
	return id
}

// AddNodeWithLinearInflowEdge adds q as a child of parent, with an inflow edge interpolated so that
// consecutive waypoints are at most step apart.
func (d *PlanningDAG) AddNodeWithLinearInflowEdge(parent NodeID, q []float64, step float64) (NodeID, error) {
	if err := d.check(parent); err != nil {
		return NoNode, err
	}
	pq := d.nodes[parent].q
	if len(pq) != len(q) {
		return NoNode, NewDimensionMismatchError(len(q), len(pq))
	}
	return d.attach(parent, NewInterpolatedPath(pq, q, step)), nil
}

// AddNodeWithPathInflowEdge adds the end of path as a child of parent. The path must start at the
// parent's configuration.
func (d *PlanningDAG) AddNodeWithPathInflowEdge(parent NodeID, path *LinearSplinePath) (NodeID, error) {
	if err := d.check(parent); err != nil {
		return NoNode, err
	}
	if path.Len() == 0 {
		return NoNode, errors.New("inflow edge has no waypoints")
	}
	if !utils.VectorsAlmostEqual(path.Start(), d.nodes[parent].q, waypointEpsilon) {
		return NoNode, errors.Errorf("inflow edge starts at %v, not at parent %d", path.Start(), parent)
	}
	return d.attach(parent, NewLinearSplinePath(path.Waypoints...)), nil
}

func (d *PlanningDAG) attach(parent NodeID, edge *LinearSplinePath) NodeID {
	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, dagNode{q: utils.Clone(edge.End()), parent: parent, inflow: edge})
	d.nodes[parent].children = append(d.nodes[parent].children, id)
	return id
}

func (d *PlanningDAG) check(id NodeID) error {
	if id < 0 || int(id) >= len(d.nodes) {
		return NewUnknownNodeError(id, len(d.nodes))
	}
	return nil
}

// PathFromRootTo walks parent pointers from id to its root and returns the concatenated inflow
// edges in root-to-node order. A root yields a single waypoint path.
func (d *PlanningDAG) PathFromRootTo(id NodeID) (*LinearSplinePath, error) {
	if err := d.check(id); err != nil {
		return nil, err
	}
	var edges []*LinearSplinePath
	for cur := id; d.nodes[cur].parent != NoNode; cur = d.nodes[cur].parent {
		edges = append(edges, d.nodes[cur].inflow)
	}
	out := NewLinearSplinePath(d.Root(id))
	for i := len(edges) - 1; i >= 0; i-- {
		out = out.CombineOrdered(edges[i])
	}
	return out, nil
}

// Root returns the configuration of the root above id.
func (d *PlanningDAG) Root(id NodeID) []float64 {
	return d.nodes[d.RootOf(id)].q
}

// RootOf returns the root above id.
func (d *PlanningDAG) RootOf(id NodeID) NodeID {
	cur := id
	for d.nodes[cur].parent != NoNode {
		cur = d.nodes[cur].parent
	}
	return cur
}

// Config returns the configuration of a node. Callers must not modify it.
func (d *PlanningDAG) Config(id NodeID) []float64 {
	return d.nodes[id].q
}

// Parent returns the parent of a node, or NoNode for roots.
func (d *PlanningDAG) Parent(id NodeID) NodeID {
	return d.nodes[id].parent
}

// Children returns the children of a node.
func (d *PlanningDAG) Children(id NodeID) []NodeID {
	return d.nodes[id].children
}

// InflowEdge returns the inflow edge of a node, nil for roots.
func (d *PlanningDAG) InflowEdge(id NodeID) *LinearSplinePath {
	return d.nodes[id].inflow
}

// NumNodes returns the number of nodes.
func (d *PlanningDAG) NumNodes() int {
	return len(d.nodes)
}

// Roots returns the root ids in insertion order.
func (d *PlanningDAG) Roots() []NodeID {
	return d.roots
}

// Nearest returns the node closest to q, or NoNode for an empty DAG.
func (d *PlanningDAG) Nearest(q []float64) NodeID {
	best, bestDist := NoNode, math.Inf(1)
	for i, n := range d.nodes {
		if dist := utils.L2Distance(n.q, q); dist < bestDist {
			best, bestDist = NodeID(i), dist
		}
	}
	return best
}

// WeavePaths joins a path through the start side with a path through the end side into one path
// from the start root to the end root. startToMeet ends at the meeting connection and endToMeet is
// the end side's root-to-node path, which is reversed.
func WeavePaths(startToMeet, connection, endToMeet *LinearSplinePath) *LinearSplinePath {
	return startToMeet.CombineOrdered(connection).CombineOrdered(endToMeet.Reverse())
}
