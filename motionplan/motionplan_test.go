package motionplan

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/referenceframe"
)

func TestLinearSplinePath(t *testing.T) {
	p := NewLinearSplinePath([]float64{0, 0}, []float64{1, 0}, []float64{1, 1})
	test.That(t, p.Len(), test.ShouldEqual, 3)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 2, 1e-12)

	r := p.Reverse()
	test.That(t, r.Start(), test.ShouldResemble, []float64{1, 1})
	test.That(t, r.End(), test.ShouldResemble, []float64{0, 0})
	test.That(t, p.Start(), test.ShouldResemble, []float64{0, 0})

	joined := p.CombineOrdered(NewLinearSplinePath([]float64{1, 1}, []float64{2, 1}))
	test.That(t, joined.Len(), test.ShouldEqual, 4)
	disjoint := p.CombineOrdered(NewLinearSplinePath([]float64{5, 5}))
	test.That(t, disjoint.Len(), test.ShouldEqual, 4)

	interp := NewInterpolatedPath([]float64{0}, []float64{1}, 0.3)
	test.That(t, interp.Len(), test.ShouldEqual, 5)
	for i := 1; i < interp.Len(); i++ {
		test.That(t, interp.Waypoints[i][0]-interp.Waypoints[i-1][0], test.ShouldBeLessThanOrEqualTo, 0.3)
	}
	test.That(t, NewInterpolatedPath([]float64{0}, []float64{1}, 0).Len(), test.ShouldEqual, 2)
}

func TestPlanningDAG(t *testing.T) {
	d := NewPlanningDAG()
	root := d.AddRoot([]float64{0, 0})
	a, err := d.AddNodeWithLinearInflowEdge(root, []float64{1, 0}, 0.5)
	test.That(t, err, test.ShouldBeNil)
	b, err := d.AddNodeWithPathInflowEdge(a, NewLinearSplinePath([]float64{1, 0}, []float64{1, 0.5}, []float64{1, 1}))
	test.That(t, err, test.ShouldBeNil)
	other := d.AddRoot([]float64{9, 9})

	path, err := d.PathFromRootTo(b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path.Waypoints, test.ShouldResemble, [][]float64{{0, 0}, {0.5, 0}, {1, 0}, {1, 0.5}, {1, 1}})
	test.That(t, d.RootOf(b), test.ShouldEqual, root)
	test.That(t, d.Parent(b), test.ShouldEqual, a)
	test.That(t, d.Children(root), test.ShouldResemble, []NodeID{a})
	test.That(t, d.Roots(), test.ShouldResemble, []NodeID{root, other})
	test.That(t, d.InflowEdge(root), test.ShouldBeNil)

	// Every non-root node has exactly one inflow edge ending at its configuration.
	for id := NodeID(0); int(id) < d.NumNodes(); id++ {
		if d.Parent(id) == NoNode {
			continue
		}
		test.That(t, d.InflowEdge(id).End(), test.ShouldResemble, d.Config(id))
		test.That(t, d.InflowEdge(id).Start(), test.ShouldResemble, d.Config(d.Parent(id)))
	}

	rootPath, err := d.PathFromRootTo(other)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rootPath.Len(), test.ShouldEqual, 1)

	test.That(t, d.Nearest([]float64{1.1, 0.9}), test.ShouldEqual, b)

	_, err = d.AddNodeWithPathInflowEdge(a, NewLinearSplinePath([]float64{3, 3}, []float64{4, 4}))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.AddNodeWithLinearInflowEdge(NodeID(42), []float64{0, 0}, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.AddNodeWithLinearInflowEdge(a, []float64{0}, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = d.PathFromRootTo(NodeID(-3))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWeavePaths(t *testing.T) {
	start := NewLinearSplinePath([]float64{0}, []float64{1})
	conn := NewLinearSplinePath([]float64{1}, []float64{2})
	end := NewLinearSplinePath([]float64{4}, []float64{3}, []float64{2})
	woven := WeavePaths(start, conn, end)
	test.That(t, woven.Waypoints, test.ShouldResemble, [][]float64{{0}, {1}, {2}, {3}, {4}})
}

func TestIndexPairing(t *testing.T) {
	ip := NewIndexPairing()
	test.That(t, ip.Pair(0, 10), test.ShouldBeNil)
	test.That(t, ip.Pair(1, 11), test.ShouldBeNil)
	test.That(t, ip.Pair(1, 11), test.ShouldBeNil)
	test.That(t, ip.Len(), test.ShouldEqual, 2)

	err := ip.Pair(1, 12)
	test.That(t, IsInternalInvariantError(err), test.ShouldBeTrue)
	err = ip.Pair(2, 10)
	test.That(t, IsInternalInvariantError(err), test.ShouldBeTrue)

	b, ok := ip.B(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, b, test.ShouldEqual, 11)
	a, err := ip.MustA(10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldEqual, 0)
	_, err = ip.MustB(7)
	test.That(t, IsInternalInvariantError(err), test.ShouldBeTrue)
	test.That(t, ip.As(), test.ShouldResemble, []int{0, 1})
	test.That(t, ip.Verify(), test.ShouldBeNil)

	c := ip.Clone()
	test.That(t, c.Pair(5, 15), test.ShouldBeNil)
	test.That(t, ip.Len(), test.ShouldEqual, 2)

	ip.bToA[99] = 0
	test.That(t, IsInternalInvariantError(ip.Verify()), test.ShouldBeTrue)
}

func TestTerminationToken(t *testing.T) {
	var nilToken *TerminationToken
	test.That(t, nilToken.GetTerminate(), test.ShouldBeFalse)

	parent := NewTerminationToken()
	child := parent.Child()
	grandchild := child.Child()
	grandchild.SetToTerminate()
	test.That(t, grandchild.GetTerminate(), test.ShouldBeTrue)
	test.That(t, child.GetTerminate(), test.ShouldBeFalse)
	parent.SetToTerminate()
	test.That(t, child.GetTerminate(), test.ShouldBeTrue)

	timed := NewTerminationToken()
	stop := timed.TerminateAfter(20 * time.Millisecond)
	defer stop()
	time.Sleep(60 * time.Millisecond)
	test.That(t, timed.GetTerminate(), test.ShouldBeTrue)

	cancelled := NewTerminationToken()
	stop = cancelled.TerminateAfter(time.Hour)
	stop()
	test.That(t, cancelled.GetTerminate(), test.ShouldBeFalse)

	ctx, cancel := context.WithCancel(context.Background())
	watched := NewTerminationToken()
	stopWatch := watched.WatchContext(ctx)
	defer stopWatch()
	cancel()
	deadline := time.Now().Add(time.Second)
	for !watched.GetTerminate() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	test.That(t, watched.GetTerminate(), test.ShouldBeTrue)
}

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder()
	RecordCollisionPoint(rec, []float64{1, 2})
	RecordEdge(rec, []float64{0, 0}, []float64{1, 1})
	RecordEdge(rec, []float64{1, 1}, []float64{2, 2})
	RecordEdge(nil, []float64{1, 1}, []float64{2, 2})
	test.That(t, rec.Count(CollisionPointAdded), test.ShouldEqual, 1)
	test.That(t, rec.Count(EdgeAdded), test.ShouldEqual, 2)
	events := rec.Events()
	test.That(t, events, test.ShouldHaveLength, 3)
	test.That(t, events[0].ID, test.ShouldNotEqual, events[1].ID)
	test.That(t, events[1].Kind.String(), test.ShouldEqual, "edge_added")
}

func circleValidator() *ConstraintValidator {
	limits := []referenceframe.Limit{{Min: -2, Max: 2}, {Min: -2, Max: 2}}
	return NewConstraintValidator(limits, func(q []float64) bool {
		return math.Hypot(q[0], q[1]) < 0.3
	})
}

func TestPlanningVars(t *testing.T) {
	vars := NewPlanningVars(circleValidator(), 0.05, 3, logging.NewTestLogger(t))
	collides, err := vars.InCollision([]float64{0, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
	collides, err = vars.InCollision([]float64{3, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
	_, err = vars.InCollision([]float64{0})
	test.That(t, err, test.ShouldNotBeNil)

	free, err := vars.SegmentFree([]float64{-1, 0}, []float64{1, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, free, test.ShouldBeFalse)
	free, err = vars.PathFree(NewLinearSplinePath([]float64{-1, 0.5}, []float64{1, 0.5}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, free, test.ShouldBeTrue)
	test.That(t, vars.Meta.Counter(CounterCollisionChecks), test.ShouldBeGreaterThan, 2)

	a, b := vars.Clone(0), vars.Clone(1)
	test.That(t, a.Sample(), test.ShouldNotResemble, b.Sample())
	test.That(t, vars.Clone(0).Sample(), test.ShouldResemble, vars.Clone(0).Sample())
	test.That(t, referenceframe.InLimits(vars.Validator.Limits(), vars.Sample()), test.ShouldBeTrue)
}

func TestCollisionValidator(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := &referenceframe.ModelConfig{
		Name: "slider",
		Links: []referenceframe.LinkConfig{
			{Name: "base", Geometry: &referenceframe.GeometryConfig{Dims: vec(0.2, 0.2, 0.2)}},
			{
				Name: "carriage", Parent: "base",
				Joint:    &referenceframe.JointConfig{Type: "prismatic", Axis: vec(1, 0, 0), Min: -1, Max: 1},
				Geometry: &referenceframe.GeometryConfig{Dims: vec(0.2, 0.2, 0.2)},
			},
		},
	}
	model, err := cfg.ParseConfig("")
	test.That(t, err, test.ShouldBeNil)
	robots, err := referenceframe.NewRobotSet(model)
	test.That(t, err, test.ShouldBeNil)
	module, err := collision.BuildRobotModule(model, collision.ModuleConfig{MetadataRoot: t.TempDir()}, logger)
	test.That(t, err, test.ShouldBeNil)
	engine, err := collision.NewEngine(logger, nil, module)
	test.That(t, err, test.ShouldBeNil)

	// Untrained tensors skip nothing, so the overlapping boxes at q=0 collide.
	v := NewCollisionValidator(robots, engine, collision.OBB)
	collides, err := v.InCollision([]float64{0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)
	collides, err = v.InCollision([]float64{0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)
	collides, err = v.InCollision([]float64{1.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeTrue)

	clone := v.Clone()
	collides, err = clone.InCollision([]float64{0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, collides, test.ShouldBeFalse)
	test.That(t, clone.Limits(), test.ShouldResemble, v.Limits())
}

func TestRunFirstSuccess(t *testing.T) {
	logger := logging.NewTestLogger(t)
	vars := NewPlanningVars(circleValidator(), 0.05, 1, logger)

	res := RunFirstSuccess(context.Background(), 4, vars, NewTerminationToken(), logger,
		func(ctx context.Context, worker int, vars *PlanningVars, token *TerminationToken) (PathPlannerResult, error) {
			if worker == 2 {
				return Found(NewLinearSplinePath([]float64{float64(worker)})), nil
			}
			for !token.GetTerminate() {
				time.Sleep(time.Millisecond)
			}
			return NotFound(ReasonEarlyTerminate), nil
		})
	test.That(t, res.Success(), test.ShouldBeTrue)
	test.That(t, res.Path.Start(), test.ShouldResemble, []float64{2})

	res = RunFirstSuccess(context.Background(), 3, vars, NewTerminationToken(), logger,
		func(ctx context.Context, worker int, vars *PlanningVars, token *TerminationToken) (PathPlannerResult, error) {
			if worker == 0 {
				return PathPlannerResult{}, errors.New("worker blew up")
			}
			if worker == 1 {
				return Partial(NewLinearSplinePath([]float64{1})), nil
			}
			return NotFound(ReasonStackEmpty), nil
		})
	test.That(t, res.Kind, test.ShouldEqual, SolutionNotFoundButPartial)

	res = RunFirstSuccess(context.Background(), 2, vars, NewTerminationToken(), logger,
		func(ctx context.Context, worker int, vars *PlanningVars, token *TerminationToken) (PathPlannerResult, error) {
			return NotFound(ReasonStackEmpty), nil
		})
	test.That(t, res.Reason, test.ShouldEqual, ReasonStackEmpty)

	caller := NewTerminationToken()
	caller.SetToTerminate()
	res = RunFirstSuccess(context.Background(), 2, vars, caller, logger,
		func(ctx context.Context, worker int, vars *PlanningVars, token *TerminationToken) (PathPlannerResult, error) {
			test.That(t, token.GetTerminate(), test.ShouldBeTrue)
			return NotFound(ReasonEarlyTerminate), nil
		})
	test.That(t, res.Reason, test.ShouldEqual, ReasonEarlyTerminate)
}

func TestPlannerOptions(t *testing.T) {
	opt := NewBasicPlannerOptions()
	test.That(t, opt.Validate(), test.ShouldBeNil)
	test.That(t, opt.TimeoutDuration(), test.ShouldEqual, 300*time.Second)

	opt, err := NewPlannerOptionsFromExtra(map[string]interface{}{
		"step_length":    0.05,
		"num_threads":    3,
		"geometry_level": "convex_hull",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opt.StepLength, test.ShouldEqual, 0.05)
	test.That(t, opt.NumThreads, test.ShouldEqual, 3)
	test.That(t, opt.GeometryLevel, test.ShouldEqual, collision.ConvexHull)
	test.That(t, opt.Resolution, test.ShouldEqual, defaultResolution)

	_, err = NewPlannerOptionsFromExtra(map[string]interface{}{"step_length": -1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPlannerOptionsFromExtra(map[string]interface{}{"geometry_level": "voxels"})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlanMetaOutput(t *testing.T) {
	meta := NewPlanMeta()
	meta.AddTiming("solveLocal", 5*time.Millisecond)
	meta.AddTiming("solveLocal", 5*time.Millisecond)
	meta.Count(CounterLocalSearches)
	test.That(t, meta.Timing("solveLocal").Calls(), test.ShouldEqual, 2)
	test.That(t, meta.Timing("solveLocal").Time(), test.ShouldEqual, 10*time.Millisecond)
	test.That(t, meta.Timing("missing").Calls(), test.ShouldEqual, 0)
	test.That(t, meta.Counter(CounterLocalSearches), test.ShouldEqual, 1)

	var buf bytes.Buffer
	meta.OutputTiming(&buf)
	test.That(t, buf.String(), test.ShouldContainSubstring, "solveLocal")
	test.That(t, buf.String(), test.ShouldContainSubstring, CounterLocalSearches)
}
