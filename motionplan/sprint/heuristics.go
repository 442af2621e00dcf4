package sprint

import (
	"math"
	"math/rand"

	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/utils"
)

// Weights of the momentum, goal and obstacle terms of the step proposal.
const (
	momentumWeight = 1.
	goalWeight     = 2.
	repelWeight    = 5.
	jitterFraction = 0.1
)

// worthExtending walks the checkpoint chain of id and reports false when any checkpoint with more
// than one sample has stopped making progress: with x the smaller of its two failure rates and
// c = 1/log2(num), the Gaussian exp(-x²/2c²) falls below kappa.
func (ld *localData) worthExtending(id motionplan.NodeID, kappa float64) bool {
	worth := true
	ld.chain(id, func(cp *nodeData) bool {
		if cp.num <= 1 {
			return true
		}
		num := float64(cp.num)
		x := math.Min(float64(cp.exploit.failures)/num, float64(cp.explore.failures)/num)
		c := 1 / math.Log2(num)
		if math.Exp(-x*x/(2*c*c)) < kappa {
			worth = false
			return false
		}
		return true
	})
	return worth
}

// proposer computes the next candidate configuration from a frontier.
type proposer struct {
	step  float64
	rand  *rand.Rand
	qGoal []float64
}

// propose returns the configuration one step from qx. Without obstacles the step continues the
// direction from qp to qx. Otherwise the jittered extrapolation is corrected by weighted gradient
// terms, including repulsion from obstacles ahead of qx, before being cut back to one step.
func (p *proposer) propose(qx, qp []float64, obstacles [][]float64) []float64 {
	momentum := utils.Sub(qx, qp)
	if len(obstacles) == 0 {
		return utils.Add(qx, utils.Scaled(p.step, utils.Unit(momentum)))
	}

	qc := utils.Add(qx, momentum)
	jitter := p.step * jitterFraction
	for i := range qc {
		qc[i] += (2*p.rand.Float64() - 1) * jitter
	}

	twoStepSq := 4 * p.step * p.step
	g1 := utils.Unit(momentum)

	toGoal := utils.Sub(p.qGoal, qc)
	psi := math.Exp(-utils.Dot(toGoal, toGoal)/twoStepSq) + 1
	g2 := utils.Scaled(psi, utils.Unit(toGoal))

	g3 := make([]float64, len(qc))
	dir := utils.Sub(qc, qx)
	dirSq := utils.Dot(dir, dir)
	for _, obs := range obstacles {
		if dirSq == 0 {
			break
		}
		t := utils.Dot(utils.Sub(obs, qx), dir) / dirSq
		if t <= 0 {
			continue
		}
		proj := utils.Add(qx, utils.Scaled(t, dir))
		away := utils.Sub(proj, obs)
		mag := repelWeight * math.Exp(-utils.Dot(away, away)/twoStepSq)
		g3 = utils.Add(g3, utils.Scaled(mag, utils.Unit(away)))
	}
	g3 = utils.Scaled(1/float64(len(obstacles)), g3)

	qc = utils.Add(qc, utils.Scaled(momentumWeight, g1))
	qc = utils.Add(qc, utils.Scaled(goalWeight, g2))
	qc = utils.Add(qc, g3)

	delta := utils.Sub(qc, qx)
	if utils.Norm(delta) == 0 {
		delta = momentum
	}
	return utils.Add(qx, utils.Scaled(p.step, utils.Unit(delta)))
}

// slide redirects a retry from qx after earlier proposals from qx collided. The direction blends the
// proposal with the momentum from qp and drops its component toward every blocked configuration,
// so the next step runs along the obstacle surface.
func (p *proposer) slide(qx, qp, qc []float64, blocked [][]float64) []float64 {
	dir := utils.Add(utils.Unit(utils.Sub(qc, qx)), utils.Unit(utils.Sub(qx, qp)))
	for _, b := range blocked {
		n := utils.Unit(utils.Sub(b, qx))
		if a := utils.Dot(dir, n); a > 0 {
			dir = utils.Sub(dir, utils.Scaled(a, n))
		}
	}
	if utils.Norm(dir) < 1e-9 {
		for i := range dir {
			dir[i] = p.rand.NormFloat64()
		}
	}
	return utils.Add(qx, utils.Scaled(p.step, utils.Unit(dir)))
}

// predecessorOf returns the configuration qx was reached from, or a point one step behind qx on the
// line away from the goal for the root.
func (p *proposer) predecessorOf(dag *motionplan.PlanningDAG, ld *localData, id motionplan.NodeID) []float64 {
	qx := dag.Config(id)
	if pred := ld.nodes[id].pred; pred != motionplan.NoNode {
		return dag.Config(pred)
	}
	back := utils.Unit(utils.Sub(p.qGoal, qx))
	return utils.Sub(qx, utils.Scaled(p.step, back))
}
