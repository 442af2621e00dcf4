package surge

import (
	"context"
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/motionplan/sprint"
	"github.com/lynxrobotics/lynx/referenceframe"
)

func cube(dof int, half float64) []referenceframe.Limit {
	limits := make([]referenceframe.Limit, dof)
	for i := range limits {
		limits[i] = referenceframe.Limit{Min: -half, Max: half}
	}
	return limits
}

func newVars(t *testing.T, dof int, collides motionplan.ConfigurationConstraint, seed int64) *motionplan.PlanningVars {
	t.Helper()
	v := motionplan.NewConstraintValidator(cube(dof, 1), collides)
	return motionplan.NewPlanningVars(v, 0.01, seed, logging.NewTestLogger(t))
}

func newSprint(t *testing.T) *sprint.Planner {
	t.Helper()
	opts := sprint.NewDefaultOptions()
	opts.StepLength = 0.1
	p, err := sprint.NewPlanner(opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

func newSurge(t *testing.T, mutate func(*Options)) *Planner {
	t.Helper()
	opts := NewDefaultOptions()
	opts.NumThreads = 4
	if mutate != nil {
		mutate(opts)
	}
	p, err := NewPlanner(opts, nil, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

// narrowPassage is a wall at |x0| < 0.1 with a corridor |x1| < 0.1 through it.
func narrowPassage(q []float64) bool {
	return math.Abs(q[0]) < 0.1 && math.Abs(q[1]) >= 0.1
}

func noObstacles([]float64) bool {
	return false
}

func checkPath(t *testing.T, res motionplan.PathPlannerResult, qInit, qGoal []float64, collides motionplan.ConfigurationConstraint) {
	t.Helper()
	test.That(t, res.Success(), test.ShouldBeTrue)
	test.That(t, res.Path.Start(), test.ShouldResemble, qInit)
	test.That(t, res.Path.End(), test.ShouldResemble, qGoal)
	for _, w := range res.Path.Waypoints {
		test.That(t, collides(w), test.ShouldBeFalse)
	}
}

func TestTrivialAndLineOfSight(t *testing.T) {
	ctx := context.Background()
	vars := newVars(t, 2, noObstacles, 0)
	res, err := newSurge(t, nil).SolveGlobal(ctx, []float64{0, 0}, []float64{0, 0}, newSprint(t), vars, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Success(), test.ShouldBeTrue)
	test.That(t, res.Path.Len(), test.ShouldBeLessThanOrEqualTo, 2)
	test.That(t, vars.Meta.Counter(motionplan.CounterSprintIters), test.ShouldEqual, 0)

	vars = newVars(t, 2, noObstacles, 0)
	qInit, qGoal := []float64{-0.8, -0.8}, []float64{0.8, 0.7}
	res, err = newSurge(t, nil).SolveGlobal(ctx, qInit, qGoal, newSprint(t), vars, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	checkPath(t, res, qInit, qGoal, noObstacles)
	test.That(t, vars.Meta.Counter(motionplan.CounterMilestones), test.ShouldEqual, 0)
	test.That(t, vars.Meta.Counter(motionplan.CounterLocalSearches), test.ShouldEqual, 1)
}

func TestNarrowPassage(t *testing.T) {
	qInit := []float64{-0.7, 0.6, 0, 0, 0, 0}
	qGoal := []float64{0.7, 0.6, 0, 0, 0, 0}
	for _, tc := range []struct {
		name   string
		mutate func(*Options)
	}{
		{"unidirectional", func(o *Options) { o.Unidirectional = true }},
		{"unidirectional batched", func(o *Options) {
			o.Unidirectional = true
			o.Mode = Batched
		}},
		{"bidirectional", nil},
		{"continuous", func(o *Options) { o.Mode = Continuous }},
		{"independent", func(o *Options) {
			o.Unidirectional = true
			o.Mode = Independent
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vars := newVars(t, 6, narrowPassage, 1)
			rec := motionplan.NewMemoryRecorder()
			res, err := newSurge(t, tc.mutate).SolveGlobal(
				context.Background(), qInit, qGoal, newSprint(t), vars, rec, motionplan.NewTerminationToken())
			test.That(t, err, test.ShouldBeNil)
			checkPath(t, res, qInit, qGoal, narrowPassage)
			test.That(t, vars.Meta.Counter(motionplan.CounterMilestones), test.ShouldBeGreaterThanOrEqualTo, 20)
			test.That(t, rec.Count(motionplan.EdgeAdded), test.ShouldBeGreaterThan, 0)
		})
	}
}

func TestUnreachableGoalTerminates(t *testing.T) {
	qGoal := []float64{0.6, 0.6}
	// A shell around the goal that no path can cross.
	shell := func(q []float64) bool {
		d := math.Hypot(q[0]-qGoal[0], q[1]-qGoal[1])
		return d > 0.15 && d < 0.35
	}
	token := motionplan.NewTerminationToken()
	stop := token.TerminateAfter(200 * time.Millisecond)
	defer stop()
	res, err := newSurge(t, nil).SolveGlobal(
		context.Background(), []float64{-0.6, -0.6}, qGoal, newSprint(t), newVars(t, 2, shell, 2), nil, token)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, motionplan.SolutionNotFound)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonEarlyTerminate)
}

func TestCollidingEndpoints(t *testing.T) {
	collides := func(q []float64) bool { return q[0] > 0.5 }
	res, err := newSurge(t, nil).SolveGlobal(
		context.Background(), []float64{0, 0}, []float64{0.9, 0}, newSprint(t), newVars(t, 2, collides, 0), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonGoalInCollision)
	test.That(t, res.Path, test.ShouldBeNil)

	_, err = newSurge(t, nil).SolveGlobal(
		context.Background(), []float64{0, 0}, []float64{0.9}, newSprint(t), newVars(t, 2, collides, 0), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPairingStaysBijective(t *testing.T) {
	qInit := []float64{-0.7, 0.6, 0, 0, 0, 0}
	qGoal := []float64{0.7, 0.6, 0, 0, 0, 0}
	vars := newVars(t, 6, narrowPassage, 5)
	opts := NewDefaultOptions()
	opts.IntegratePartialResults = true
	s, err := newPlanState(opts, NewDefaultObjectiveStack(), UniformSampler, qInit, qGoal, vars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.verify(), test.ShouldBeNil)

	sprintOpts := sprint.NewDefaultOptions()
	sprintOpts.StepLength = 0.1
	sprintOpts.ReturnPartial = true
	local, err := sprint.NewPlanner(sprintOpts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	found := false
	for i := 0; i < 200 && !found; i++ {
		cands, err := s.nextCandidates(1)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cands, test.ShouldHaveLength, 1)
		res, err := local.SolveLocal(context.Background(), s.points.Config(cands[0].anchor), s.points.Config(cands[0].target), vars, nil, nil)
		test.That(t, err, test.ShouldBeNil)
		path, err := s.integrate(cands[0], res)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.verify(), test.ShouldBeNil)
		found = path != nil
	}
	test.That(t, found, test.ShouldBeTrue)
}

func TestPartialEndpointsNeedSpacing(t *testing.T) {
	opts := NewDefaultOptions()
	opts.NumMilestones = 0
	opts.IntegratePartialResults = true
	vars := newVars(t, 2, noObstacles, 0)
	s, err := newPlanState(opts, NewDefaultObjectiveStack(), UniformSampler, []float64{0, 0}, []float64{1, 0}, vars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	partial := func(a, b []float64) motionplan.PathPlannerResult {
		return motionplan.Partial(motionplan.NewLinearSplinePath(a, b))
	}
	fromStart := candidate{anchor: 0, target: 1}

	// Barely left the anchor.
	_, err = s.integrate(fromStart, partial([]float64{0, 0}, []float64{0.05, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.points.Len(), test.ShouldEqual, 2)
	test.That(t, vars.Meta.Counter(motionplan.CounterPartialsDropped), test.ShouldEqual, 1)

	_, err = s.integrate(fromStart, partial([]float64{0, 0}, []float64{0.3, 0.2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.points.Len(), test.ShouldEqual, 3)
	test.That(t, s.points.Role(2), test.ShouldEqual, ReachedByStartDag)
	test.That(t, s.verify(), test.ShouldBeNil)

	// Next to the endpoint integrated above.
	_, err = s.integrate(fromStart, partial([]float64{0, 0}, []float64{0.35, 0.2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.points.Len(), test.ShouldEqual, 3)
	test.That(t, vars.Meta.Counter(motionplan.CounterPartialsDropped), test.ShouldEqual, 2)

	_, err = s.integrate(candidate{anchor: 1, target: 0}, partial([]float64{1, 0}, []float64{0.7, 0}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.points.Role(3), test.ShouldEqual, ReachedByEndDag)
	test.That(t, s.verify(), test.ShouldBeNil)
}

func TestSameSideSuccessUpdatesTerms(t *testing.T) {
	stack, err := NewObjectiveStack(NewTerm(CloserToTargetDag, 1))
	test.That(t, err, test.ShouldBeNil)
	opts := NewDefaultOptions()
	opts.NumMilestones = 0
	qInit, qMid := []float64{0, 0}, []float64{0.5, 0.5}
	s, err := newPlanState(opts, stack, UniformSampler, qInit, []float64{1, 0}, newVars(t, 2, noObstacles, 0), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	mid := s.points.Add(qMid, Milestone)
	reach := candidate{anchor: 0, target: mid}
	_, err = s.integrate(reach, motionplan.Found(motionplan.NewLinearSplinePath(qInit, qMid)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.points.Role(mid), test.ShouldEqual, StartDagNode)

	_, err = s.stack.Score(1, mid, s.points, s.cache.Get(1, mid))
	test.That(t, err, test.ShouldBeNil)
	_, memoized := s.cache.Get(1, mid).Oriented(1, mid).Score()
	test.That(t, memoized, test.ShouldBeTrue)

	// A batch sibling already brought mid into the start DAG; the terms still learn of the success.
	path, err := s.integrate(reach, motionplan.Found(motionplan.NewLinearSplinePath(qInit, qMid)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldBeNil)
	_, memoized = s.cache.Get(1, mid).Oriented(1, mid).Score()
	test.That(t, memoized, test.ShouldBeFalse)
	test.That(t, s.verify(), test.ShouldBeNil)
}

func TestContinuousKeepsInFlightResults(t *testing.T) {
	opts := NewDefaultOptions()
	opts.NumMilestones = 0
	opts.MaxMilestones = 0
	opts.Mode = Continuous
	opts.NumThreads = 3
	qInit, qGoal := []float64{0, 0}, []float64{1, 0}
	vars := newVars(t, 2, noObstacles, 0)
	s, err := newPlanState(opts, NewDefaultObjectiveStack(), UniformSampler, qInit, qGoal, vars, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	// The only candidate is still running when the other workers find nothing left to try.
	slow := motionplan.LocalPlannerFunc(func(
		ctx context.Context, qa, qt []float64, vars *motionplan.PlanningVars, rec motionplan.Recorder, token *motionplan.TerminationToken,
	) (motionplan.PathPlannerResult, error) {
		time.Sleep(50 * time.Millisecond)
		return motionplan.Found(motionplan.NewLinearSplinePath(qa, qt)), nil
	})
	res, err := s.runContinuous(context.Background(), slow, vars, nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, motionplan.SolutionFound)
	test.That(t, res.Path.Waypoints, test.ShouldResemble, [][]float64{qInit, qGoal})
}

func straightLine(fail func(a, b []float64) bool) motionplan.LocalPlanner {
	return motionplan.LocalPlannerFunc(func(
		ctx context.Context, qInit, qGoal []float64, vars *motionplan.PlanningVars, rec motionplan.Recorder, token *motionplan.TerminationToken,
	) (motionplan.PathPlannerResult, error) {
		if fail(qInit, qGoal) {
			return motionplan.NotFound(motionplan.ReasonStackEmpty), nil
		}
		return motionplan.Found(motionplan.NewLinearSplinePath(qInit, qGoal)), nil
	})
}

func TestStitchFromEitherSide(t *testing.T) {
	qInit, qGoal, qMid := []float64{0, 0}, []float64{1, 0}, []float64{0.5, 0.5}
	opts := NewDefaultOptions()
	opts.NumMilestones = 0
	newState := func() *planState {
		s, err := newPlanState(opts, NewDefaultObjectiveStack(), UniformSampler, qInit, qGoal, newVars(t, 2, noObstacles, 0), logging.NewTestLogger(t))
		test.That(t, err, test.ShouldBeNil)
		return s
	}
	want := [][]float64{qInit, qMid, qGoal}

	// The end DAG reaches the milestone, then the start state connects to it.
	s := newState()
	mid := s.points.Add(qMid, Milestone)
	path, err := s.integrate(candidate{anchor: 1, target: mid}, motionplan.Found(motionplan.NewLinearSplinePath(qGoal, qMid)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldBeNil)
	test.That(t, s.points.Role(mid), test.ShouldEqual, EndDagNode)
	test.That(t, s.verify(), test.ShouldBeNil)
	path, err = s.integrate(candidate{anchor: 0, target: mid}, motionplan.Found(motionplan.NewLinearSplinePath(qInit, qMid)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Waypoints, test.ShouldResemble, want)

	// The same milestone, met from the end side.
	s = newState()
	mid = s.points.Add(qMid, Milestone)
	_, err = s.integrate(candidate{anchor: 1, target: mid}, motionplan.Found(motionplan.NewLinearSplinePath(qGoal, qMid)))
	test.That(t, err, test.ShouldBeNil)
	path, err = s.integrate(candidate{anchor: mid, target: 0}, motionplan.Found(motionplan.NewLinearSplinePath(qMid, qInit)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Waypoints, test.ShouldResemble, want)

	// A planner whose local search refuses the direct pair goes through a relay.
	relay := func(vars *motionplan.PlanningVars) []float64 { return qMid }
	p, err := NewPlanner(opts, nil, relay, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	p.opts.NumMilestones = 1
	direct := func(a, b []float64) bool {
		return (a[0] == 0 && b[0] == 1) || (a[0] == 1 && b[0] == 0)
	}
	res, err := p.SolveGlobal(context.Background(), qInit, qGoal, straightLine(direct), newVars(t, 2, noObstacles, 0), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Path.Waypoints, test.ShouldResemble, want)
}

func TestNoCandidatesLeft(t *testing.T) {
	opts := NewDefaultOptions()
	opts.NumMilestones = 2
	opts.MaxMilestones = 4
	p, err := NewPlanner(opts, nil, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	never := func(a, b []float64) bool { return true }
	vars := newVars(t, 2, noObstacles, 0)
	res, err := p.SolveGlobal(context.Background(), []float64{0, 0}, []float64{1, 0}, straightLine(never), vars, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonNoCandidates)
	// 2 milestones grow to 3; growing again would pass the cap of 4.
	test.That(t, vars.Meta.Counter(motionplan.CounterMilestones), test.ShouldEqual, 3)
}

func TestOptionsValidate(t *testing.T) {
	opts := NewDefaultOptions()
	test.That(t, opts.Validate(), test.ShouldBeNil)
	opts.MilestoneGrowth = 1
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	var mode ParallelMode
	test.That(t, mode.UnmarshalJSON([]byte(`"continuous"`)), test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, Continuous)
	test.That(t, mode.UnmarshalJSON([]byte(`"sometimes"`)), test.ShouldNotBeNil)
}
