package sprint

import (
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/utils"
)

// progress tracks how often extensions below a checkpoint failed to improve on the best value seen.
type progress struct {
	failures int
	best     float64
}

type nodeData struct {
	exploit  progress
	explore  progress
	obs      [][]float64
	blocked  [][]float64
	num      int
	prevCP   motionplan.NodeID
	pred     motionplan.NodeID
	isCP     bool
	isDeadCP bool
}

// localData is the per-node search statistics of one search, indexed by DAG node id. qNStar and
// qMStar are the search's init and goal anchors.
type localData struct {
	nodes  []nodeData
	qNStar []float64
	qMStar []float64
}

func newLocalData(qInit, qGoal []float64) *localData {
	return &localData{qNStar: qInit, qMStar: qGoal}
}

// add registers a node created from pred. The node inherits the checkpoint chain of pred.
func (ld *localData) add(id, pred motionplan.NodeID) {
	for len(ld.nodes) <= int(id) {
		ld.nodes = append(ld.nodes, nodeData{prevCP: motionplan.NoNode, pred: motionplan.NoNode})
	}
	n := &ld.nodes[id]
	n.pred = pred
	if pred != motionplan.NoNode {
		n.prevCP = ld.checkpointOf(pred)
	}
}

// checkpointOf returns id when it is a checkpoint and its previous checkpoint otherwise.
func (ld *localData) checkpointOf(id motionplan.NodeID) motionplan.NodeID {
	if ld.nodes[id].isCP {
		return id
	}
	return ld.nodes[id].prevCP
}

// label turns id into a checkpoint scored against the anchors.
func (ld *localData) label(id motionplan.NodeID, q []float64) {
	n := &ld.nodes[id]
	n.isCP = true
	n.exploit = progress{best: utils.L2Distance(q, ld.qMStar)}
	n.explore = progress{best: utils.L2Distance(q, ld.qNStar)}
	n.obs = nil
	n.num = 1
}

// chain calls fn for the nearest checkpoint of id and every checkpoint above it.
func (ld *localData) chain(id motionplan.NodeID, fn func(cp *nodeData) bool) {
	for cp := ld.checkpointOf(id); cp != motionplan.NoNode; cp = ld.nodes[cp].prevCP {
		if !fn(&ld.nodes[cp]) {
			return
		}
	}
}

// recordSample updates the statistics of every checkpoint above a new node at q. A checkpoint
// counts a failure in exploitation when q is not closer to the goal than its best, and in
// exploration when q is not farther from the start than its best.
func (ld *localData) recordSample(id motionplan.NodeID, q []float64) {
	toGoal := utils.L2Distance(q, ld.qMStar)
	fromInit := utils.L2Distance(q, ld.qNStar)
	ld.chain(id, func(cp *nodeData) bool {
		cp.num++
		if toGoal < cp.exploit.best {
			cp.exploit.best = toGoal
		} else {
			cp.exploit.failures++
		}
		if fromInit > cp.explore.best {
			cp.explore.best = fromInit
		} else {
			cp.explore.failures++
		}
		return true
	})
}

// addObstacle stores a colliding configuration on the nearest checkpoint of id.
func (ld *localData) addObstacle(id motionplan.NodeID, q []float64) {
	if cp := ld.checkpointOf(id); cp != motionplan.NoNode {
		ld.nodes[cp].obs = append(ld.nodes[cp].obs, q)
	}
}

// nearbyObstacles collects up to limit obstacles along the checkpoint chain of id, most recent first.
func (ld *localData) nearbyObstacles(id motionplan.NodeID, limit int) [][]float64 {
	var out [][]float64
	ld.chain(id, func(cp *nodeData) bool {
		for i := len(cp.obs) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, cp.obs[i])
		}
		return len(out) < limit
	})
	return out
}

func (ld *localData) markDead(id motionplan.NodeID) {
	if cp := ld.checkpointOf(id); cp != motionplan.NoNode {
		ld.nodes[cp].isDeadCP = true
	}
}

func (ld *localData) isDead(id motionplan.NodeID) bool {
	cp := ld.checkpointOf(id)
	return cp != motionplan.NoNode && ld.nodes[cp].isDeadCP
}
