// Package planning runs complete plan calls: SURGE over SPRINT on a collision engine built from a
// problem description.
package planning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opencensus.io/trace"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/motionplan/sprint"
	"github.com/lynxrobotics/lynx/motionplan/surge"
)

// Plan is the outcome of one plan call.
type Plan struct {
	ID     uuid.UUID                    `json:"id"`
	Result motionplan.PathPlannerResult `json:"result"`
	Meta   *motionplan.PlanMeta         `json:"-"`
	Events []motionplan.Event           `json:"events,omitempty"`
}

// PlanMotion plans from start to goal. The call gives up after the configured timeout or when ctx
// is done, returning the best result it has.
func PlanMotion(ctx context.Context, logger logging.Logger, setup *Setup, start, goal []float64) (*Plan, error) {
	ctx, span := trace.StartSpan(ctx, "planning::PlanMotion")
	defer span.End()

	plan := &Plan{ID: uuid.New()}
	logger = logger.Sublogger(plan.ID.String()[:8])

	validator := motionplan.NewCollisionValidator(setup.Robots, setup.Engine, setup.Options.GeometryLevel)
	vars := motionplan.NewPlanningVars(validator, setup.Options.Resolution, int64(setup.Options.RandomSeed), logger)
	plan.Meta = vars.Meta

	token := motionplan.NewTerminationToken()
	defer token.TerminateAfter(setup.Options.TimeoutDuration())()
	defer token.WatchContext(ctx)()

	local, err := sprint.NewPlanner(setup.Sprint, logger.Sublogger("sprint"))
	if err != nil {
		return nil, err
	}
	rec := motionplan.NewMemoryRecorder()

	begin := time.Now()
	if setup.LocalOnly {
		plan.Result, err = local.SolveLocal(ctx, start, goal, vars, rec, token)
	} else {
		var global *surge.Planner
		global, err = surge.NewPlanner(setup.Surge, setup.Stack, surge.UniformSampler, logger.Sublogger("surge"))
		if err != nil {
			return nil, err
		}
		plan.Result, err = global.SolveGlobal(ctx, start, goal, local, vars, rec, token)
	}
	if err != nil {
		return nil, err
	}
	vars.Meta.Duration = time.Since(begin)
	vars.Meta.Partial = plan.Result.Kind == motionplan.SolutionNotFoundButPartial
	plan.Events = rec.Events()

	if plan.Result.Success() {
		logger.Infof("found a path of %d waypoints and length %.3f in %v",
			plan.Result.Path.Len(), plan.Result.Path.Length(), vars.Meta.Duration)
	} else {
		logger.Infof("no path after %v: %s %s", vars.Meta.Duration, plan.Result.Kind, plan.Result.Reason)
	}
	return plan, nil
}

// Solve builds a problem and plans it.
func Solve(ctx context.Context, logger logging.Logger, p *Problem) (*Plan, error) {
	setup, err := p.Build(logger)
	if err != nil {
		return nil, err
	}
	return PlanMotion(ctx, logger, setup, p.Start, p.Goal)
}
