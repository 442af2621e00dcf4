// Package motionplan holds the pieces shared by the local and global planners: paths and results,
// the planning DAG, termination tokens, recorders, state validation and the parallel driver.
package motionplan

import (
	"context"
)

// LocalPlanner tries to connect two configurations.
type LocalPlanner interface {
	SolveLocal(
		ctx context.Context,
		qInit, qGoal []float64,
		vars *PlanningVars,
		rec Recorder,
		token *TerminationToken,
	) (PathPlannerResult, error)
}

// GlobalPlanner finds a path between two configurations by dispatching pairs to a local planner.
type GlobalPlanner interface {
	SolveGlobal(
		ctx context.Context,
		qInit, qGoal []float64,
		local LocalPlanner,
		vars *PlanningVars,
		rec Recorder,
		token *TerminationToken,
	) (PathPlannerResult, error)
}

// LocalPlannerFunc adapts a function to LocalPlanner.
type LocalPlannerFunc func(
	ctx context.Context, qInit, qGoal []float64, vars *PlanningVars, rec Recorder, token *TerminationToken,
) (PathPlannerResult, error)

// SolveLocal implements LocalPlanner.
func (f LocalPlannerFunc) SolveLocal(
	ctx context.Context, qInit, qGoal []float64, vars *PlanningVars, rec Recorder, token *TerminationToken,
) (PathPlannerResult, error) {
	return f(ctx, qInit, qGoal, vars, rec, token)
}
