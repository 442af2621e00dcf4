package sprint

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/referenceframe"
)

func square(half float64) []referenceframe.Limit {
	return []referenceframe.Limit{{Min: -half, Max: half}, {Min: -half, Max: half}}
}

func circleObstacle(q []float64) bool {
	return math.Hypot(q[0], q[1]) < 0.3
}

func newVars(t *testing.T, collides motionplan.ConfigurationConstraint, seed int64) *motionplan.PlanningVars {
	t.Helper()
	v := motionplan.NewConstraintValidator(square(2), collides)
	return motionplan.NewPlanningVars(v, 0.01, seed, logging.NewTestLogger(t))
}

func newPlanner(t *testing.T, mutate func(*Options)) *Planner {
	t.Helper()
	opts := NewDefaultOptions()
	opts.StepLength = 0.1
	if mutate != nil {
		mutate(opts)
	}
	p, err := NewPlanner(opts, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

func checkWaypointsFree(t *testing.T, path *motionplan.LinearSplinePath, collides motionplan.ConfigurationConstraint) {
	t.Helper()
	for _, w := range path.Waypoints {
		test.That(t, collides(w), test.ShouldBeFalse)
	}
}

func TestSingleObstacleDetour(t *testing.T) {
	for _, seed := range []int64{0, 1, 2} {
		vars := newVars(t, circleObstacle, seed)
		rec := motionplan.NewMemoryRecorder()
		res, err := newPlanner(t, nil).SolveLocal(
			context.Background(), []float64{-1, 0}, []float64{1, 0}, vars, rec, motionplan.NewTerminationToken())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Success(), test.ShouldBeTrue)
		test.That(t, res.Path.Start(), test.ShouldResemble, []float64{-1, 0})
		test.That(t, res.Path.End(), test.ShouldResemble, []float64{1, 0})
		checkWaypointsFree(t, res.Path, circleObstacle)
		test.That(t, vars.Meta.Counter(motionplan.CounterSprintIters), test.ShouldBeLessThanOrEqualTo, 50)
		// The straight line is blocked, so at least one step collided and forced a checkpoint.
		test.That(t, rec.Count(motionplan.CollisionPointAdded), test.ShouldBeGreaterThanOrEqualTo, 1)
		test.That(t, rec.Count(motionplan.EdgeAdded), test.ShouldBeGreaterThanOrEqualTo, res.Path.Len()-1)
	}
}

// A wall taller than several steps blocks the straight line between both anchors.
func wallObstacle(q []float64) bool {
	return math.Abs(q[0]) < 0.1 && math.Abs(q[1]) < 0.6
}

func TestWallDetour(t *testing.T) {
	for _, seed := range []int64{0, 1, 2, 3} {
		for _, mode := range []Mode{Forward, Reverse} {
			vars := newVars(t, wallObstacle, seed)
			rec := motionplan.NewMemoryRecorder()
			res, err := newPlanner(t, func(o *Options) { o.Mode = mode }).SolveLocal(
				context.Background(), []float64{-0.8, 0}, []float64{0.8, 0}, vars, rec, motionplan.NewTerminationToken())
			test.That(t, err, test.ShouldBeNil)
			test.That(t, res.Success(), test.ShouldBeTrue)
			test.That(t, res.Path.Start(), test.ShouldResemble, []float64{-0.8, 0})
			test.That(t, res.Path.End(), test.ShouldResemble, []float64{0.8, 0})
			checkWaypointsFree(t, res.Path, wallObstacle)
			test.That(t, rec.Count(motionplan.CollisionPointAdded), test.ShouldBeGreaterThanOrEqualTo, 1)
			test.That(t, vars.Meta.Counter(motionplan.CounterSprintIters), test.ShouldBeLessThan, 200)
		}
	}
}

func TestSlideDropsBlockedDirection(t *testing.T) {
	p := &proposer{step: 0.1, qGoal: []float64{1, 0}}
	qx := []float64{0, 0}
	qc := p.slide(qx, []float64{-0.1, 0}, []float64{0.1, 0.05}, [][]float64{{0.1, 0}})
	test.That(t, qc[0], test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, qc[1], test.ShouldAlmostEqual, 0.1, 1e-12)

	// A blocked direction pointing away from the proposal leaves it alone.
	qc = p.slide(qx, []float64{-0.1, 0}, []float64{0.1, 0}, [][]float64{{-0.1, 0}})
	test.That(t, qc[0], test.ShouldAlmostEqual, 0.1, 1e-12)
	test.That(t, qc[1], test.ShouldAlmostEqual, 0, 1e-12)
}

func TestGoalWithinTwoStepsOfFirstSample(t *testing.T) {
	vars := newVars(t, func([]float64) bool { return false }, 0)
	res, err := newPlanner(t, nil).SolveLocal(
		context.Background(), []float64{-1, 0}, []float64{-0.75, 0}, vars, nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Success(), test.ShouldBeTrue)
	test.That(t, res.Path.Len(), test.ShouldEqual, 3)
	test.That(t, res.Path.Waypoints[1][0], test.ShouldAlmostEqual, -0.9, 1e-12)
	test.That(t, res.Path.Waypoints[1][1], test.ShouldAlmostEqual, 0, 1e-12)

	res, err = newPlanner(t, nil).SolveLocal(
		context.Background(), []float64{0, 0}, []float64{0.15, 0}, vars, nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Path.Len(), test.ShouldEqual, 2)
}

func TestProposeWithoutObstaclesIsMomentum(t *testing.T) {
	p := &proposer{step: 0.1, qGoal: []float64{0, 5}}
	qc := p.propose([]float64{1, 1}, []float64{0.5, 1}, nil)
	test.That(t, qc[0], test.ShouldAlmostEqual, 1.1, 1e-12)
	test.That(t, qc[1], test.ShouldAlmostEqual, 1, 1e-12)
}

func TestProposeStaysOneStepAway(t *testing.T) {
	vars := newVars(t, circleObstacle, 4)
	p := &proposer{step: 0.1, rand: vars.Rand, qGoal: []float64{1, 0}}
	qx := []float64{-0.5, 0}
	qc := p.propose(qx, []float64{-0.6, 0}, [][]float64{{-0.4, 0}, {-0.45, 0.05}})
	test.That(t, math.Hypot(qc[0]-qx[0], qc[1]-qx[1]), test.ShouldAlmostEqual, 0.1, 1e-9)
}

func TestWorthExtending(t *testing.T) {
	ld := newLocalData([]float64{0, 0}, []float64{1, 0})
	ld.add(0, motionplan.NoNode)
	ld.label(0, []float64{0, 0})
	ld.add(1, 0)
	test.That(t, ld.worthExtending(1, defaultKappa), test.ShouldBeTrue)

	// Four samples that each improved on both measures.
	for _, q := range [][]float64{{0.1, 0}, {0.2, 0}, {0.3, 0}} {
		ld.recordSample(1, q)
	}
	test.That(t, ld.nodes[0].num, test.ShouldEqual, 4)
	test.That(t, ld.nodes[0].exploit.failures, test.ShouldEqual, 0)
	test.That(t, ld.worthExtending(1, defaultKappa), test.ShouldBeTrue)

	// Seven samples stuck at the start fail both measures.
	for i := 0; i < 7; i++ {
		ld.recordSample(1, []float64{0, 0})
	}
	test.That(t, ld.nodes[0].explore.failures, test.ShouldEqual, 7)
	test.That(t, ld.worthExtending(1, defaultKappa), test.ShouldBeFalse)
}

func TestNearbyObstaclesFollowChain(t *testing.T) {
	ld := newLocalData([]float64{0}, []float64{1})
	ld.add(0, motionplan.NoNode)
	ld.label(0, []float64{0})
	ld.add(1, 0)
	ld.label(1, []float64{0.1})
	ld.add(2, 1)
	for i := 0; i < 3; i++ {
		ld.addObstacle(0, []float64{float64(10 + i)})
	}
	ld.addObstacle(2, []float64{20})
	ld.addObstacle(2, []float64{21})
	test.That(t, ld.nearbyObstacles(2, maxNearbyObstacles), test.ShouldResemble, [][]float64{{21}, {20}, {12}, {11}})
}

func TestForwardAndReverseAgree(t *testing.T) {
	free := func([]float64) bool { return false }
	qInit, qGoal := []float64{0, 0}, []float64{1, 0.5}

	fwd, err := newPlanner(t, nil).SolveLocal(
		context.Background(), qInit, qGoal, newVars(t, free, 0), nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)
	rev, err := newPlanner(t, func(o *Options) { o.Mode = Reverse }).SolveLocal(
		context.Background(), qInit, qGoal, newVars(t, free, 0), nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)

	for _, res := range []motionplan.PathPlannerResult{fwd, rev} {
		test.That(t, res.Success(), test.ShouldBeTrue)
		test.That(t, res.Path.Start(), test.ShouldResemble, qInit)
		test.That(t, res.Path.End(), test.ShouldResemble, qGoal)
		// Every waypoint lies on the straight line y = x/2.
		for _, w := range res.Path.Waypoints {
			test.That(t, w[1]-w[0]/2, test.ShouldAlmostEqual, 0, 1e-9)
		}
	}
	test.That(t, math.Abs(float64(fwd.Path.Len()-rev.Path.Len())), test.ShouldBeLessThanOrEqualTo, 1)
}

func TestSolveLocalFailures(t *testing.T) {
	ctx := context.Background()
	p := newPlanner(t, nil)

	res, err := p.SolveLocal(ctx, []float64{0, 0}, []float64{1, 0}, newVars(t, circleObstacle, 0), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonInitInCollision)

	res, err = p.SolveLocal(ctx, []float64{1, 0}, []float64{0, 0}, newVars(t, circleObstacle, 0), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonGoalInCollision)

	token := motionplan.NewTerminationToken()
	token.SetToTerminate()
	res, err = p.SolveLocal(ctx, []float64{-1, 0}, []float64{1, 0}, newVars(t, circleObstacle, 0), nil, token)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonEarlyTerminate)

	// Only a small pocket around the start is free.
	pocket := func(q []float64) bool {
		return math.Hypot(q[0], q[1]) > 0.05 && math.Hypot(q[0]-1, q[1]) > 0.05
	}
	res, err = p.SolveLocal(ctx, []float64{0, 0}, []float64{1, 0}, newVars(t, pocket, 0), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, motionplan.SolutionNotFound)
	test.That(t, res.Reason, test.ShouldEqual, motionplan.ReasonStackEmpty)

	_, err = p.SolveLocal(ctx, []float64{0, 0}, []float64{1}, newVars(t, pocket, 0), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPartialResult(t *testing.T) {
	room := func(q []float64) bool {
		return math.Hypot(q[0], q[1]) > 0.35 && math.Hypot(q[0]-1.5, q[1]) > 0.05
	}
	p := newPlanner(t, func(o *Options) { o.ReturnPartial = true })
	res, err := p.SolveLocal(context.Background(), []float64{0, 0}, []float64{1.5, 0}, newVars(t, room, 3), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Kind, test.ShouldEqual, motionplan.SolutionNotFoundButPartial)
	test.That(t, res.Path.Start(), test.ShouldResemble, []float64{0, 0})
	test.That(t, res.Path.Len(), test.ShouldBeGreaterThanOrEqualTo, 2)
	test.That(t, res.Reason, test.ShouldNotBeEmpty)
	checkWaypointsFree(t, res.Path, room)
}

func TestParallelMode(t *testing.T) {
	p := newPlanner(t, func(o *Options) {
		o.Mode = Parallel
		o.NumThreads = 4
	})
	res, err := p.SolveLocal(
		context.Background(), []float64{-1, 0}, []float64{1, 0}, newVars(t, circleObstacle, 8), nil, motionplan.NewTerminationToken())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Success(), test.ShouldBeTrue)
	test.That(t, res.Path.Start(), test.ShouldResemble, []float64{-1, 0})
	test.That(t, res.Path.End(), test.ShouldResemble, []float64{1, 0})
	checkWaypointsFree(t, res.Path, circleObstacle)
}

func TestOptions(t *testing.T) {
	var opts Options
	err := json.Unmarshal([]byte(`{"step_length": 0.2, "kappa": 0.5, "max_iterations": 10, "mode": "random_direction"}`), &opts)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Mode, test.ShouldEqual, RandomDirection)
	test.That(t, opts.Validate(), test.ShouldBeNil)

	test.That(t, json.Unmarshal([]byte(`{"mode": "sideways"}`), &opts), test.ShouldNotBeNil)
	opts.Kappa = 1.5
	test.That(t, opts.Validate(), test.ShouldNotBeNil)

	shared := motionplan.NewBasicPlannerOptions()
	shared.StepLength = 0.3
	shared.ReturnPartialPlan = true
	fromShared := NewOptionsFromPlannerOptions(shared)
	test.That(t, fromShared.StepLength, test.ShouldEqual, 0.3)
	test.That(t, fromShared.ReturnPartial, test.ShouldBeTrue)
	test.That(t, fromShared.Kappa, test.ShouldEqual, defaultKappa)
}
