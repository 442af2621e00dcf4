package planning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/motionplan/surge"
)

// A gantry whose carriage must go around a wall standing in the middle of its workspace.
const gantryProblem = `
robots:
  - model:
      name: gantry
      links:
        - name: x_axis
          joint: {type: prismatic, axis: {x: 1}, min: 0, max: 1}
        - name: carriage
          parent: x_axis
          joint: {type: prismatic, axis: {y: 1}, min: "-1", max: 1}
          geometry: {dims: {x: 0.1, y: 0.1, z: 0.1}}
environment:
  - name: walls
    boxes:
      - label: wall
        center: {x: 0.5}
        dims: {x: 0.1, y: 1, z: 0.2}
start: [0.1, 0]
goal: [0.9, 0]
planner:
  timeout: 30
  rseed: 1
surge:
  num_milestones: 10
  parallel_mode: force_single_threaded
objectives:
  - kind: pairwise_dis
    weight: 1
  - kind: collision_budget
    weight: 0.5
`

const gantryJSON = `{
  "name": "gantry",
  "links": [
    {"name": "x_axis", "joint": {"type": "prismatic", "axis": {"x": 1}, "min": 0, "max": 1}},
    {"name": "carriage", "parent": "x_axis",
     "joint": {"type": "prismatic", "axis": {"y": 1}, "min": -1, "max": 1},
     "geometry": {"dims": {"x": 0.1, "y": 0.1, "z": 0.1}}}
  ]
}`

func TestParseProblem(t *testing.T) {
	p, err := ParseProblem([]byte(gantryProblem), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Robots, test.ShouldHaveLength, 1)
	test.That(t, p.Environment[0].Boxes[0].Center.X, test.ShouldEqual, 0.5)
	test.That(t, p.Environment[0].Boxes[0].Dims.Y, test.ShouldEqual, 1.)
	test.That(t, p.Start, test.ShouldResemble, []float64{0.1, 0})
	test.That(t, p.Objectives[1].Kind, test.ShouldEqual, "collision_budget")

	logger := logging.NewTestLogger(t)
	setup, err := p.Build(logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, setup.Robots.DoF(), test.ShouldHaveLength, 2)
	test.That(t, setup.Options.Timeout, test.ShouldEqual, 30.)
	test.That(t, setup.Options.RandomSeed, test.ShouldEqual, 1)
	test.That(t, setup.Surge.NumMilestones, test.ShouldEqual, 10)
	test.That(t, setup.Surge.Mode, test.ShouldEqual, surge.ForceSingleThreaded)
	test.That(t, setup.Stack.Terms(), test.ShouldHaveLength, 2)
	test.That(t, setup.Stack.LowerIsBetter(), test.ShouldBeTrue)
}

func TestLoadProblemResolvesRobotFiles(t *testing.T) {
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "gantry.json"), []byte(gantryJSON), 0o600), test.ShouldBeNil)
	problem := "robots:\n  - file: gantry.json\nstart: [0, 0]\ngoal: [1, 0]\nmetadata_dir: meta\n"
	path := filepath.Join(dir, "problem.yaml")
	test.That(t, os.WriteFile(path, []byte(problem), 0o600), test.ShouldBeNil)

	p, err := LoadProblem(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Robots[0].File, test.ShouldEqual, filepath.Join(dir, "gantry.json"))
	test.That(t, p.MetadataDir, test.ShouldEqual, filepath.Join(dir, "meta"))

	setup, err := p.Build(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, setup.Engine.Robots()[0].Name(), test.ShouldEqual, "gantry")
	test.That(t, setup.Engine.Robots()[0].Tensors(), test.ShouldNotBeNil)
}

func TestProblemErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name    string
		problem string
	}{
		{"no robots", "start: [0]\ngoal: [1]\n"},
		{"no goal", "robots:\n  - file: a.json\nstart: [0]\n"},
		{"file and model", "robots:\n  - file: a.json\n    model: {name: a}\nstart: [0]\ngoal: [1]\n"},
		{"unknown key", "robots:\n  - file: a.json\nstart: [0]\ngoal: [1]\nplaner: {}\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProblem([]byte(tc.problem), "")
			test.That(t, err, test.ShouldNotBeNil)
		})
	}

	p, err := ParseProblem([]byte(gantryProblem), "")
	test.That(t, err, test.ShouldBeNil)
	p.Start = []float64{0}
	_, err = p.Build(logger)
	test.That(t, err, test.ShouldNotBeNil)

	p, err = ParseProblem([]byte(gantryProblem), "")
	test.That(t, err, test.ShouldBeNil)
	p.Objectives = []ObjectiveSpec{{Kind: "closest", Weight: 1}}
	_, err = p.Build(logger)
	test.That(t, err, test.ShouldNotBeNil)

	p.Objectives = []ObjectiveSpec{{Kind: "collision_budget", Weight: 1, Scopes: []string{"world"}}}
	_, err = p.Build(logger)
	test.That(t, err, test.ShouldNotBeNil)

	p.Objectives = nil
	p.Sprint = map[string]interface{}{"kappa": 2}
	_, err = p.Build(logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveAroundWall(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, localOnly := range []bool{false, true} {
		p, err := ParseProblem([]byte(gantryProblem), "")
		test.That(t, err, test.ShouldBeNil)
		p.LocalOnly = localOnly

		plan, err := Solve(context.Background(), logger, p)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, plan.Result.Kind, test.ShouldEqual, motionplan.SolutionFound)
		path := plan.Result.Path
		test.That(t, path.Start(), test.ShouldResemble, p.Start)
		test.That(t, path.End(), test.ShouldResemble, p.Goal)

		setup, err := p.Build(logger)
		test.That(t, err, test.ShouldBeNil)
		vars := motionplan.NewPlanningVars(
			motionplan.NewCollisionValidator(setup.Robots, setup.Engine, setup.Options.GeometryLevel),
			setup.Options.Resolution, 0, logger)
		for _, q := range path.Waypoints {
			collides, err := vars.InCollision(q)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, collides, test.ShouldBeFalse)
		}
		test.That(t, plan.Meta.Counter(motionplan.CounterCollisionChecks), test.ShouldBeGreaterThan, 0)
		test.That(t, plan.Events, test.ShouldNotBeEmpty)
	}
}

func TestPlanMotionGoalInWall(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p, err := ParseProblem([]byte(gantryProblem), "")
	test.That(t, err, test.ShouldBeNil)
	setup, err := p.Build(logger)
	test.That(t, err, test.ShouldBeNil)

	plan, err := PlanMotion(context.Background(), logger, setup, p.Start, []float64{0.5, 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plan.Result.Kind, test.ShouldEqual, motionplan.SolutionNotFound)
	test.That(t, plan.Result.Reason, test.ShouldEqual, motionplan.ReasonGoalInCollision)

	_, err = PlanMotion(context.Background(), logger, setup, p.Start, []float64{0.5})
	test.That(t, err, test.ShouldNotBeNil)
}
