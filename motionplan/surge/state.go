package surge

import (
	"math"
	"slices"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/utils"
)

// MilestoneSampler draws a candidate milestone. Colliding samples are rejected by the planner.
type MilestoneSampler func(vars *motionplan.PlanningVars) []float64

// UniformSampler draws uniformly from the validator's joint limits.
func UniformSampler(vars *motionplan.PlanningVars) []float64 {
	return vars.Sample()
}

type candidate struct {
	anchor, target int
	score          float64
}

// planState is everything one search owns: the points, the two DAGs indexed by side, the pairings
// between point indices and DAG node ids, and the connection records.
type planState struct {
	opts    *Options
	stack   *ObjectiveStack
	sampler MilestoneSampler
	vars    *motionplan.PlanningVars
	logger  logging.Logger

	points   *Points
	cache    *ConnectionCache
	dags     map[Side]*motionplan.PlanningDAG
	pairings map[Side]*motionplan.IndexPairing

	numMilestones int
	nanLogged     bool
}

func newPlanState(
	opts *Options,
	stack *ObjectiveStack,
	sampler MilestoneSampler,
	qInit, qGoal []float64,
	vars *motionplan.PlanningVars,
	logger logging.Logger,
) (*planState, error) {
	s := &planState{
		opts:     opts,
		stack:    stack.Clone(),
		sampler:  sampler,
		vars:     vars,
		logger:   logger,
		points:   NewPoints(),
		cache:    NewConnectionCache(len(stack.Terms())),
		dags:     map[Side]*motionplan.PlanningDAG{StartSide: motionplan.NewPlanningDAG()},
		pairings: map[Side]*motionplan.IndexPairing{StartSide: motionplan.NewIndexPairing()},
	}
	start := s.points.Add(qInit, StartState)
	if err := s.pairings[StartSide].Pair(start, int(s.dags[StartSide].AddRoot(qInit))); err != nil {
		return nil, err
	}
	end := s.points.Add(qGoal, EndState)
	if !opts.Unidirectional {
		s.dags[EndSide] = motionplan.NewPlanningDAG()
		s.pairings[EndSide] = motionplan.NewIndexPairing()
		if err := s.pairings[EndSide].Pair(end, int(s.dags[EndSide].AddRoot(qGoal))); err != nil {
			return nil, err
		}
	}
	added, err := s.addMilestones(opts.NumMilestones)
	if err != nil {
		return nil, err
	}
	s.numMilestones = added
	s.stack.Initialize(s.points)
	return s, nil
}

func (s *planState) milestoneRole() Role {
	if s.opts.Unidirectional {
		return StartDagTarget
	}
	return Milestone
}

func (s *planState) sides() []Side {
	if s.opts.Unidirectional {
		return []Side{StartSide}
	}
	return []Side{StartSide, EndSide}
}

// addMilestones adds up to n collision free samples and returns how many were added.
func (s *planState) addMilestones(n int) (int, error) {
	added := 0
	for added < n {
		ok := false
		for attempt := 0; attempt < maxMilestoneAttempts; attempt++ {
			q := s.sampler(s.vars)
			collides, err := s.vars.InCollision(q)
			if err != nil {
				return added, err
			}
			if !collides {
				s.points.Add(q, s.milestoneRole())
				s.vars.Meta.Count(motionplan.CounterMilestones)
				ok = true
				break
			}
		}
		if !ok {
			s.logger.Warnf("no collision free milestone after %d samples", maxMilestoneAttempts)
			return added, nil
		}
		added++
	}
	return added, nil
}

// rankSide scores every live pair from an anchor on side and returns the best n.
func (s *planState) rankSide(side Side, n int) ([]candidate, error) {
	var out []candidate
	targets := s.points.TargetsFor(side)
	for _, a := range s.points.OnSide(side) {
		for _, t := range targets {
			if a == t || s.cache.IsDead(a, t) {
				continue
			}
			score, err := s.stack.Score(a, t, s.points, s.cache.Get(a, t))
			if err != nil {
				return nil, err
			}
			if math.IsNaN(score) {
				if !s.nanLogged {
					s.logger.Warnw("skipping candidate connections with NaN scores", "anchor", a, "target", t)
					s.nanLogged = true
				}
				continue
			}
			out = append(out, candidate{anchor: a, target: t, score: score})
		}
	}
	slices.SortStableFunc(out, func(x, y candidate) int {
		switch {
		case s.stack.Better(x.score, y.score):
			return -1
		case s.stack.Better(y.score, x.score):
			return 1
		}
		return 0
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// bestCandidates returns up to n candidates, interleaving the sides by score.
func (s *planState) bestCandidates(n int) ([]candidate, error) {
	var merged []candidate
	for _, side := range s.sides() {
		ranked, err := s.rankSide(side, n)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = ranked
			continue
		}
		merged = s.interleave(merged, ranked)
	}
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged, nil
}

func (s *planState) interleave(a, b []candidate) []candidate {
	out := make([]candidate, 0, len(a)+len(b))
	for len(a) > 0 && len(b) > 0 {
		if s.stack.Better(b[0].score, a[0].score) {
			out, b = append(out, b[0]), b[1:]
		} else {
			out, a = append(out, a[0]), a[1:]
		}
	}
	return append(append(out, a...), b...)
}

// nextCandidates returns up to n candidates and marks them dead. When none are left the milestone
// count grows until candidates appear or the cap is reached, in which case it returns none.
func (s *planState) nextCandidates(n int) ([]candidate, error) {
	for {
		cands, err := s.bestCandidates(n)
		if err != nil {
			return nil, err
		}
		if len(cands) > 0 {
			for _, c := range cands {
				s.cache.MarkDead(c.anchor, c.target)
			}
			return cands, nil
		}
		grown := int(math.Ceil(float64(s.numMilestones) * s.opts.MilestoneGrowth))
		if grown <= s.numMilestones {
			grown = s.numMilestones + 1
		}
		if grown > s.opts.MaxMilestones {
			return nil, nil
		}
		added, err := s.addMilestones(grown - s.numMilestones)
		if err != nil {
			return nil, err
		}
		if added == 0 {
			return nil, nil
		}
		s.numMilestones += added
		s.logger.Debugf("no candidate connections left, grew to %d milestones", s.numMilestones)
	}
}

// integrate applies the result of attempting c. It returns the complete path when the attempt made
// the two sides meet.
func (s *planState) integrate(c candidate, res motionplan.PathPlannerResult) (*motionplan.LinearSplinePath, error) {
	side := s.points.Role(c.anchor).Side()
	success := res.Success()
	switch {
	case success && s.points.Role(c.target).Side() == side:
		// A sibling attempt in the same batch already brought the target into this DAG.
	case success:
		meeting, err := s.points.ConvertAuto(c.anchor, c.target)
		if err != nil {
			return nil, err
		}
		anchorNode, err := s.pairings[side].MustB(c.anchor)
		if err != nil {
			return nil, err
		}
		if meeting {
			return s.stitch(side, motionplan.NodeID(anchorNode), c.target, res.Path)
		}
		node, err := s.dags[side].AddNodeWithPathInflowEdge(motionplan.NodeID(anchorNode), res.Path)
		if err != nil {
			return nil, err
		}
		if err := s.pairings[side].Pair(c.target, int(node)); err != nil {
			return nil, err
		}
	case res.Kind == motionplan.SolutionNotFoundButPartial && s.opts.IntegratePartialResults && res.Path.Len() > 1:
		if !s.isolated(res.Path.End(), s.opts.MinPartialSpacing) {
			s.vars.Meta.Count(motionplan.CounterPartialsDropped)
			break
		}
		anchorNode, err := s.pairings[side].MustB(c.anchor)
		if err != nil {
			return nil, err
		}
		node, err := s.dags[side].AddNodeWithPathInflowEdge(motionplan.NodeID(anchorNode), res.Path)
		if err != nil {
			return nil, err
		}
		if err := s.pairings[side].Pair(s.points.AddReached(res.Path.End(), side), int(node)); err != nil {
			return nil, err
		}
	}
	if s.stack.UpdateAfterConnectionAttempt(c.anchor, c.target, s.points, success) {
		s.cache.FlushScores()
	}
	return nil, nil
}

// isolated reports whether q is at least spacing away from every point. The anchor of a partial
// search is a point, so an isolated endpoint also advanced at least spacing beyond it.
func (s *planState) isolated(q []float64, spacing float64) bool {
	for i := 0; i < s.points.Len(); i++ {
		if utils.L2Distance(q, s.points.Config(i)) < spacing {
			return false
		}
	}
	return true
}

// stitch joins the start DAG path, the connection and the end DAG path into one path from the
// start state to the end state.
func (s *planState) stitch(
	side Side, anchorNode motionplan.NodeID, target int, connection *motionplan.LinearSplinePath,
) (*motionplan.LinearSplinePath, error) {
	other := side.Opposite()
	anchorPath, err := s.dags[side].PathFromRootTo(anchorNode)
	if err != nil {
		return nil, err
	}
	if s.dags[other] == nil {
		// Unidirectional: the target is the end state itself.
		return anchorPath.CombineOrdered(connection), nil
	}
	targetNode, err := s.pairings[other].MustB(target)
	if err != nil {
		return nil, err
	}
	targetPath, err := s.dags[other].PathFromRootTo(motionplan.NodeID(targetNode))
	if err != nil {
		return nil, err
	}
	if side == StartSide {
		return motionplan.WeavePaths(anchorPath, connection, targetPath), nil
	}
	return motionplan.WeavePaths(targetPath, connection.Reverse(), anchorPath), nil
}

// verify checks that every DAG point is paired with exactly one node of its DAG.
func (s *planState) verify() error {
	for side, pairing := range s.pairings {
		if err := pairing.Verify(); err != nil {
			return err
		}
		onSide := s.points.OnSide(side)
		if len(onSide) != pairing.Len() || pairing.Len() != s.dags[side].NumNodes() {
			return motionplan.NewInternalInvariantError("%v DAG has %d points, %d pairs and %d nodes",
				side, len(onSide), pairing.Len(), s.dags[side].NumNodes())
		}
		for _, p := range onSide {
			node, err := pairing.MustB(p)
			if err != nil {
				return err
			}
			if !slices.Equal(s.points.Config(p), s.dags[side].Config(motionplan.NodeID(node))) {
				return motionplan.NewInternalInvariantError("point %d and node %d hold different configurations", p, node)
			}
		}
	}
	return nil
}
