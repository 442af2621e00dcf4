package motionplan

import (
	"context"
	"sync"

	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lynxrobotics/lynx/logging"
)

// WorkerFunc runs one worker of a parallel search with its own vars and termination token.
type WorkerFunc func(ctx context.Context, worker int, vars *PlanningVars, token *TerminationToken) (PathPlannerResult, error)

// RunFirstSuccess runs n workers, each with cloned vars and a child token. The first successful
// result terminates the siblings and is returned. Worker errors are logged and only end that worker.
// Without a success the first partial result is returned, or a failure whose reason is
// ReasonEarlyTerminate when the caller's token was set and the first worker's reason otherwise.
func RunFirstSuccess(
	ctx context.Context,
	n int,
	vars *PlanningVars,
	token *TerminationToken,
	logger logging.Logger,
	work WorkerFunc,
) PathPlannerResult {
	ctx, span := trace.StartSpan(ctx, "RunFirstSuccess")
	defer span.End()

	if n < 1 {
		n = 1
	}
	group := token.Child()

	var mu sync.RWMutex
	var winner, partial *PathPlannerResult
	reason := ""

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		workerVars := vars.Clone(i)
		workerToken := group.Child()
		g.Go(func() error {
			res, err := work(gctx, i, workerVars, workerToken)
			if err != nil {
				logger.Warnw("parallel worker failed", "worker", i, "error", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			switch res.Kind {
			case SolutionFound:
				if winner == nil {
					winner = &res
					group.SetToTerminate()
					logger.Debugf("worker %d found a solution", i)
				}
			case SolutionNotFoundButPartial:
				if partial == nil {
					partial = &res
				}
			case SolutionNotFound:
				if reason == "" {
					reason = res.Reason
				}
			}
			return nil
		})
	}
	//nolint:errcheck
	g.Wait()

	mu.RLock()
	defer mu.RUnlock()
	switch {
	case winner != nil:
		return *winner
	case token.GetTerminate():
		return NotFound(ReasonEarlyTerminate)
	case partial != nil:
		return *partial
	case reason != "":
		return NotFound(reason)
	}
	return NotFound("all workers failed")
}
