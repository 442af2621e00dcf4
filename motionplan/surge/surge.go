// Package surge implements a sampling based global planner. It grows a DAG from the start state,
// and from the end state unless unidirectional, by handing ranked candidate connections between
// DAG nodes, milestones and the opposite DAG to a local planner.
package surge

import (
	"context"
	"sync"
	"time"

	"go.opencensus.io/trace"
	"go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
)

// Planner is the SURGE global planner.
type Planner struct {
	opts    *Options
	stack   *ObjectiveStack
	sampler MilestoneSampler
	logger  logging.Logger
}

// NewPlanner returns a planner. A nil stack ranks by distance, a nil sampler samples uniformly and
// nil options use the defaults.
func NewPlanner(opts *Options, stack *ObjectiveStack, sampler MilestoneSampler, logger logging.Logger) (*Planner, error) {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if stack == nil {
		stack = NewDefaultObjectiveStack()
	}
	if sampler == nil {
		sampler = UniformSampler
	}
	return &Planner{opts: opts, stack: stack, sampler: sampler, logger: logger}, nil
}

// SolveGlobal implements motionplan.GlobalPlanner.
func (p *Planner) SolveGlobal(
	ctx context.Context,
	qInit, qGoal []float64,
	local motionplan.LocalPlanner,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	ctx, span := trace.StartSpan(ctx, "surge::SolveGlobal")
	defer span.End()
	defer vars.Meta.DeferTiming("surge.SolveGlobal", time.Now())

	if len(qInit) != len(qGoal) {
		return motionplan.PathPlannerResult{}, motionplan.NewDimensionMismatchError(len(qGoal), len(qInit))
	}

	direct, err := local.SolveLocal(ctx, qInit, qGoal, vars, rec, token)
	if err != nil || direct.Success() {
		return direct, err
	}
	switch direct.Reason {
	case motionplan.ReasonInitInCollision, motionplan.ReasonGoalInCollision:
		return direct, nil
	}
	p.logger.CDebugf(ctx, "direct connection failed (%s), starting %v search", direct.Reason, p.opts.Mode)

	if p.opts.Mode == Independent {
		return motionplan.RunFirstSuccess(ctx, p.opts.NumThreads, vars, token, p.logger,
			func(ctx context.Context, worker int, vars *motionplan.PlanningVars, token *motionplan.TerminationToken) (
				motionplan.PathPlannerResult, error,
			) {
				s, err := newPlanState(p.opts, p.stack, p.sampler, qInit, qGoal, vars, p.logger)
				if err != nil {
					return motionplan.PathPlannerResult{}, err
				}
				return s.runSingle(ctx, local, vars, rec, token)
			}), nil
	}

	s, err := newPlanState(p.opts, p.stack, p.sampler, qInit, qGoal, vars, p.logger)
	if err != nil {
		return motionplan.PathPlannerResult{}, err
	}
	switch p.opts.Mode {
	case Batched:
		return s.runBatched(ctx, local, vars, rec, token)
	case Continuous:
		return s.runContinuous(ctx, local, vars, rec, token)
	case ForceSingleThreaded, Independent:
	}
	return s.runSingle(ctx, local, vars, rec, token)
}

func (s *planState) runSingle(
	ctx context.Context,
	local motionplan.LocalPlanner,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	for {
		if token.GetTerminate() {
			return motionplan.NotFound(motionplan.ReasonEarlyTerminate), nil
		}
		cands, err := s.nextCandidates(1)
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		if len(cands) == 0 {
			return motionplan.NotFound(motionplan.ReasonNoCandidates), nil
		}
		c := cands[0]
		res, err := local.SolveLocal(ctx, s.points.Config(c.anchor), s.points.Config(c.target), vars, rec, token)
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		path, err := s.integrate(c, res)
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		if path != nil {
			return motionplan.Found(path), nil
		}
	}
}

func (s *planState) runBatched(
	ctx context.Context,
	local motionplan.LocalPlanner,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	workers := make([]*motionplan.PlanningVars, s.opts.threads())
	for i := range workers {
		workers[i] = vars.Clone(i)
	}
	for {
		if token.GetTerminate() {
			return motionplan.NotFound(motionplan.ReasonEarlyTerminate), nil
		}
		cands, err := s.nextCandidates(len(workers))
		if err != nil {
			return motionplan.PathPlannerResult{}, err
		}
		if len(cands) == 0 {
			return motionplan.NotFound(motionplan.ReasonNoCandidates), nil
		}

		results := make([]motionplan.PathPlannerResult, len(cands))
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range cands {
			qa, qt := s.points.Config(c.anchor), s.points.Config(c.target)
			g.Go(func() error {
				res, err := local.SolveLocal(gctx, qa, qt, workers[i], rec, token)
				if err != nil {
					s.logger.Warnw("batched connection attempt failed", "anchor", c.anchor, "target", c.target, "error", err)
					res = motionplan.NotFound(err.Error())
				}
				results[i] = res
				return nil
			})
		}
		//nolint:errcheck
		g.Wait()

		for i, c := range cands {
			path, err := s.integrate(c, results[i])
			if err != nil {
				return motionplan.PathPlannerResult{}, err
			}
			if path != nil {
				return motionplan.Found(path), nil
			}
		}
	}
}

type assignment struct {
	cand   candidate
	qa, qt []float64
	done   bool
}

type report struct {
	cand candidate
	res  motionplan.PathPlannerResult
}

// runContinuous keeps every worker busy. The calling goroutine owns the plan state and is the only
// one touching it: workers ask it for candidates and report results over channels.
func (s *planState) runContinuous(
	ctx context.Context,
	local motionplan.LocalPlanner,
	vars *motionplan.PlanningVars,
	rec motionplan.Recorder,
	token *motionplan.TerminationToken,
) (motionplan.PathPlannerResult, error) {
	n := s.opts.threads()
	group := token.Child()
	requests := make(chan chan assignment, n)
	reports := make(chan report, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wvars := vars.Clone(i)
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			for !group.GetTerminate() {
				reply := make(chan assignment, 1)
				requests <- reply
				a := <-reply
				if a.done {
					return
				}
				res, err := local.SolveLocal(ctx, a.qa, a.qt, wvars, rec, group)
				if err != nil {
					s.logger.Warnw("continuous connection attempt failed", "worker", i, "error", err)
					res = motionplan.NotFound(err.Error())
				}
				reports <- report{cand: a.cand, res: res}
			}
		})
	}
	exited := make(chan struct{})
	utils.PanicCapturingGo(func() {
		wg.Wait()
		close(exited)
	})

	var (
		result   *motionplan.PathPlannerResult
		fatal    error
		finished bool
		inFlight int
		// Workers waiting for a candidate while in-flight results may still add some.
		parked []chan assignment
		assign func(reply chan assignment)
	)
	release := func() {
		waiting := parked
		parked = nil
		for _, reply := range waiting {
			assign(reply)
		}
	}
	finish := func(res *motionplan.PathPlannerResult, err error) {
		if finished {
			return
		}
		finished, result, fatal = true, res, err
		group.SetToTerminate()
		release()
	}
	assign = func(reply chan assignment) {
		if finished || group.GetTerminate() {
			reply <- assignment{done: true}
			return
		}
		cands, err := s.nextCandidates(1)
		switch {
		case err != nil:
			reply <- assignment{done: true}
			finish(nil, err)
		case len(cands) == 0 && inFlight > 0:
			parked = append(parked, reply)
		case len(cands) == 0:
			reply <- assignment{done: true}
			res := motionplan.NotFound(motionplan.ReasonNoCandidates)
			finish(&res, nil)
		default:
			c := cands[0]
			inFlight++
			reply <- assignment{cand: c, qa: s.points.Config(c.anchor), qt: s.points.Config(c.target)}
		}
	}
	handle := func(rep report) {
		inFlight--
		if finished {
			return
		}
		path, err := s.integrate(rep.cand, rep.res)
		if err != nil {
			finish(nil, err)
		} else if path != nil {
			res := motionplan.Found(path)
			finish(&res, nil)
		}
	}
	for {
		select {
		case reply := <-requests:
			assign(reply)
		case rep := <-reports:
			handle(rep)
			release()
		case <-exited:
			// Workers report before exiting, so the last results may still be buffered.
			for drained := false; !drained; {
				select {
				case rep := <-reports:
					handle(rep)
				default:
					drained = true
				}
			}
			if fatal != nil {
				return motionplan.PathPlannerResult{}, fatal
			}
			if result != nil {
				return *result, nil
			}
			return motionplan.NotFound(motionplan.ReasonEarlyTerminate), nil
		}
	}
}
