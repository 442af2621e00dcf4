// Package sprint implements a momentum driven local planner. A search grows a single DAG from the
// start configuration one step at a time, backs off along a stack of frontier nodes when a step
// collides, and abandons checkpoints whose subtrees stop making progress.
package sprint

import (
	"context"
	"time"

	"go.opencensus.io/trace"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/utils"
)

// Planner is the SPRINT local planner.
type Planner struct {
	opts   *Options
	logger logging.Logger
}

// NewPlanner returns a planner. Nil options use the defaults.
func NewPlanner(opts *Options, logger logging.Logger) (*Planner, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Planner{opts: opts, logger: logger}, nil
}

// Options returns the planner's options.
func (p *Planner) Options() *Options {
	return p.opts
}

// SolveLocal implements motionplan.LocalPlanner.
func (p *Planner) SolveLocal(
	ctx context.Context,
	qInit, qGoal []float64,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	ctx, span := trace.StartSpan(ctx, "sprint::SolveLocal")
	defer span.End()
	defer vars.Meta.DeferTiming("sprint.SolveLocal", time.Now())
	vars.Meta.Count(motionplan.CounterLocalSearches)

	if len(qInit) != len(qGoal) {
		return motionplan.PathPlannerResult{}, motionplan.NewDimensionMismatchError(len(qGoal), len(qInit))
	}

	switch p.opts.Mode {
	case Forward:
		return p.search(ctx, qInit, qGoal, vars, rec, token)
	case Reverse:
		return p.reversed(ctx, qInit, qGoal, vars, rec, token)
	case RandomDirection:
		return p.randomDirection(ctx, qInit, qGoal, vars, rec, token)
	case Parallel:
		res := motionplan.RunFirstSuccess(ctx, p.opts.NumThreads, vars, token, p.logger,
			func(ctx context.Context, worker int, vars *motionplan.PlanningVars, token *motionplan.TerminationToken) (
				motionplan.PathPlannerResult, error,
			) {
				return p.randomDirection(ctx, qInit, qGoal, vars, rec, token)
			})
		return res, nil
	}
	return motionplan.PathPlannerResult{}, motionplan.NewInternalInvariantError("unhandled sprint mode %v", p.opts.Mode)
}

func (p *Planner) reversed(
	ctx context.Context,
	qInit, qGoal []float64,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	res, err := p.search(ctx, qGoal, qInit, vars, rec, token)
	if err != nil {
		return res, err
	}
	if res.Kind == motionplan.SolutionNotFoundButPartial {
		// A partial path from the goal side does not start at qInit.
		return motionplan.NotFound(res.Reason), nil
	}
	return res.Reversed(), nil
}

func (p *Planner) randomDirection(
	ctx context.Context,
	qInit, qGoal []float64,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	if vars.Rand.Intn(2) == 0 {
		return p.search(ctx, qInit, qGoal, vars, rec, token)
	}
	return p.reversed(ctx, qInit, qGoal, vars, rec, token)
}

// search runs one forward search from qInit to qGoal.
func (p *Planner) search(
	ctx context.Context,
	qInit, qGoal []float64,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	step := p.opts.StepLength

	collides, err := vars.InCollision(qInit)
	if err != nil {
		return motionplan.PathPlannerResult{}, err
	}
	if collides {
		return motionplan.NotFound(motionplan.ReasonInitInCollision), nil
	}
	if collides, err = vars.InCollision(qGoal); err != nil {
		return motionplan.PathPlannerResult{}, err
	} else if collides {
		return motionplan.NotFound(motionplan.ReasonGoalInCollision), nil
	}

	if utils.L2Distance(qInit, qGoal) < 2*step {
		free, err := vars.SegmentFree(qInit, qGoal)
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		if free {
			motionplan.RecordEdge(rec, qInit, qGoal)
			return motionplan.Found(motionplan.NewLinearSplinePath(qInit, qGoal)), nil
		}
	}

	s := &searchState{
		dag:  motionplan.NewPlanningDAG(),
		data: newLocalData(qInit, qGoal),
		prop: &proposer{step: step, rand: vars.Rand, qGoal: qGoal},
	}
	root := s.dag.AddRoot(qInit)
	s.data.add(root, motionplan.NoNode)
	s.data.label(root, qInit)

	x := root
	addCheckpoint := true
	for iter := 0; iter < p.opts.MaxIterations; iter++ {
		if token.GetTerminate() {
			return p.failure(s, motionplan.ReasonEarlyTerminate), nil
		}
		vars.Meta.Count(motionplan.CounterSprintIters)

		if s.data.nodes[x].isCP && !s.data.worthExtending(x, p.opts.Kappa) {
			if p.opts.PruneDeadCheckpoints {
				s.data.markDead(x)
			}
			var ok bool
			if x, ok = s.pop(p.opts.PruneDeadCheckpoints); !ok {
				return p.failure(s, motionplan.ReasonStackEmpty), nil
			}
			addCheckpoint = true
			continue
		}
		if addCheckpoint && !s.data.nodes[x].isCP {
			s.data.label(x, s.dag.Config(x))
		}

		qx := s.dag.Config(x)
		qp := s.prop.predecessorOf(s.dag, s.data, x)
		qc := s.prop.propose(qx, qp, s.data.nearbyObstacles(x, maxNearbyObstacles))
		if blocked := s.data.nodes[x].blocked; len(blocked) > 0 {
			qc = s.prop.slide(qx, qp, qc, blocked)
		}

		collides, err := vars.InCollision(qc)
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		if collides {
			s.data.addObstacle(x, qc)
			motionplan.RecordCollisionPoint(rec, qc)
			addCheckpoint = true
			if n := &s.data.nodes[x]; len(n.blocked) < maxFrontierRetries {
				n.blocked = append(n.blocked, qc)
				continue
			}
			var ok bool
			if x, ok = s.pop(p.opts.PruneDeadCheckpoints); !ok {
				return p.failure(s, motionplan.ReasonStackEmpty), nil
			}
			continue
		}

		id, err := s.dag.AddNodeWithPathInflowEdge(x, motionplan.NewLinearSplinePath(qx, qc))
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		s.data.add(id, x)
		s.data.recordSample(id, qc)
		motionplan.RecordEdge(rec, qx, qc)

		if utils.L2Distance(qGoal, qc) < 2*step {
			free, err := vars.SegmentFree(qc, qGoal)
			if err != nil {
				return motionplan.PathPlannerResult{}, err
			}
			if free {
				path, err := s.dag.PathFromRootTo(id)
				if err != nil {
					return motionplan.PathPlannerResult{}, err
				}
				motionplan.RecordEdge(rec, qc, qGoal)
				p.logger.CDebugf(ctx, "sprint reached goal after %d iterations with %d nodes", iter+1, s.dag.NumNodes())
				return motionplan.Found(path.CombineOrdered(motionplan.NewLinearSplinePath(qGoal))), nil
			}
		}

		s.stack = append(s.stack, x)
		x = id
		addCheckpoint = false
	}
	return p.failure(s, motionplan.ReasonMaxIterations), nil
}

type searchState struct {
	dag   *motionplan.PlanningDAG
	data  *localData
	prop  *proposer
	stack []motionplan.NodeID
}

// pop returns the most recent frontier, skipping nodes under dead checkpoints when prune is set.
func (s *searchState) pop(prune bool) (motionplan.NodeID, bool) {
	for len(s.stack) > 0 {
		id := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if prune && s.data.isDead(id) {
			continue
		}
		return id, true
	}
	return motionplan.NoNode, false
}

// failure returns a partial path to the node closest to the goal when requested and something was
// explored, and reason otherwise.
func (p *Planner) failure(s *searchState, reason string) motionplan.PathPlannerResult {
	if !p.opts.ReturnPartial || s.dag.NumNodes() < 2 {
		return motionplan.NotFound(reason)
	}
	path, err := s.dag.PathFromRootTo(s.dag.Nearest(s.data.qMStar))
	if err != nil || path.Len() < 2 {
		return motionplan.NotFound(reason)
	}
	res := motionplan.Partial(path)
	res.Reason = reason
	return res
}
