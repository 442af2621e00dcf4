package referenceframe

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/lynxrobotics/lynx/spatialmath"
	"github.com/lynxrobotics/lynx/utils"
)

func TestSevenDoFArm(t *testing.T) {
	m, err := ParseModelJSONFile(utils.ResolveFile("referenceframe/testfiles/seven_dof_arm.json"), "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "seven_dof_arm")
	test.That(t, m.DoF(), test.ShouldHaveLength, 7)
	test.That(t, m.NumLinks(), test.ShouldEqual, 8)
	test.That(t, m.LinkNames()[7], test.ShouldEqual, "link_7")

	fk, err := m.ComputeFK(make([]float64, 7))
	test.That(t, err, test.ShouldBeNil)
	// Straight up: joint offsets stack along z.
	test.That(t, fk.LinkFrames[7].Point().Z, test.ShouldAlmostEqual, 0.2+0.3+0.4+0.3+0.3+0.2+0.15, 1e-9)

	g, ok := m.LinkGeometry(2)
	test.That(t, ok, test.ShouldBeTrue)
	dims, ok := spatialmath.BoxDimensions(g)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dims.Z, test.ShouldAlmostEqual, 0.5, 1e-12)

	_, err = m.ComputeFK(make([]float64, 6))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseModelJSON5File(t *testing.T) {
	const slider = `{
  // A single carriage on a rail.
  name: "slider",
  links: [
    {name: "base", geometry: {dims: {x: 0.2, y: 0.2, z: 0.2}}},
    {
      name: "carriage",
      parent: "base",
      joint: {type: "prismatic", axis: {x: 1}, min: -1, max: 1},
      geometry: {dims: {x: 0.2, y: 0.2, z: 0.2}},
    },
  ],
}`
	dir := t.TempDir()
	path := filepath.Join(dir, "slider.json5")
	test.That(t, os.WriteFile(path, []byte(slider), 0o600), test.ShouldBeNil)
	m, err := ParseModelJSONFile(path, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "slider")
	test.That(t, m.DoF(), test.ShouldHaveLength, 1)
	test.That(t, m.DoF()[0].Max, test.ShouldEqual, 1.)

	// The same text is not plain JSON.
	plain := filepath.Join(dir, "slider.json")
	test.That(t, os.WriteFile(plain, []byte(slider), 0o600), test.ShouldBeNil)
	_, err = ParseModelJSONFile(plain, "")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = UnmarshalModelJSON5(nil, "")
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)
}

func TestRevoluteAndPrismatic(t *testing.T) {
	cfg := &ModelConfig{
		Name: "rp",
		Links: []LinkConfig{
			// Declared out of order on purpose.
			{Name: "slider", Parent: "arm", Translation: r3.Vector{X: 1}, Joint: &JointConfig{Type: "prismatic", Axis: r3.Vector{X: 1}, Min: 0, Max: 1}},
			{Name: "arm", Joint: &JointConfig{Type: "revolute", Axis: r3.Vector{Z: 1}, Min: -math.Pi, Max: math.Pi}},
		},
	}
	m, err := cfg.ParseConfig("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.LinkNames(), test.ShouldResemble, []string{"arm", "slider"})

	fk, err := m.ComputeFK([]float64{math.Pi / 2, 0.5})
	test.That(t, err, test.ShouldBeNil)
	tip := fk.LinkFrames[1].Point()
	test.That(t, tip.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, tip.Y, test.ShouldAlmostEqual, 1.5, 1e-9)

	grad, err := ComputeFKGradientPerturbations(m, []float64{0, 0}, 1e-3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, grad.Perturbations, test.ShouldHaveLength, 2)
	test.That(t, grad.X, test.ShouldResemble, []float64{0, 0})
	dx := grad.Perturbations[1].LinkFrames[1].Point().Sub(grad.FK.LinkFrames[1].Point())
	test.That(t, dx.X, test.ShouldAlmostEqual, 1e-3, 1e-12)
	dy := grad.Perturbations[0].LinkFrames[1].Point().Sub(grad.FK.LinkFrames[1].Point())
	test.That(t, dy.Y, test.ShouldAlmostEqual, 1e-3, 1e-6)
}

func TestDisabledChain(t *testing.T) {
	cfg := &ModelConfig{
		Name:           "gripper_disabled",
		DisabledChains: []string{"gripper"},
		Links: []LinkConfig{
			{Name: "base"},
			{Name: "finger", Parent: "base", Chain: "gripper", Joint: &JointConfig{Type: "prismatic", Axis: r3.Vector{Y: 1}, Max: 0.1}},
		},
	}
	m, err := cfg.ParseConfig("")
	test.That(t, err, test.ShouldBeNil)
	fk, err := m.ComputeFK([]float64{0.05})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fk.LinkFrames[0], test.ShouldNotBeNil)
	test.That(t, fk.LinkFrames[1], test.ShouldBeNil)
}

func TestModelConfigErrors(t *testing.T) {
	_, err := UnmarshalModelJSON(nil, "")
	test.That(t, err, test.ShouldEqual, ErrNoModelInformation)

	_, err = (&ModelConfig{Links: []LinkConfig{{Name: "a", Parent: "ghost"}}}).ParseConfig("x")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ghost")

	_, err = (&ModelConfig{Links: []LinkConfig{{Name: "a"}, {Name: "a"}}}).ParseConfig("x")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = (&ModelConfig{Links: []LinkConfig{{Name: "a", Joint: &JointConfig{Type: "ball"}}}}).ParseConfig("x")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestModelConfigFromMap(t *testing.T) {
	attrs := map[string]interface{}{
		"name": "from_yaml",
		"links": []interface{}{
			map[string]interface{}{
				"name":  "l0",
				"joint": map[string]interface{}{"type": "revolute", "axis": map[string]interface{}{"z": 1}, "min": "-1", "max": 1},
			},
		},
	}
	cfg, err := ModelConfigFromMap(attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Links[0].Joint.Axis, test.ShouldResemble, r3.Vector{Z: 1})
	test.That(t, cfg.Links[0].Joint.Min, test.ShouldEqual, -1.)
	m, err := cfg.ParseConfig("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.DoF(), test.ShouldResemble, []Limit{{Min: -1, Max: 1}})
}

func TestRobotSet(t *testing.T) {
	a, err := (&ModelConfig{Links: []LinkConfig{{Name: "j", Joint: &JointConfig{Type: "revolute", Axis: r3.Vector{Z: 1}, Min: -1, Max: 1}}}}).ParseConfig("a")
	test.That(t, err, test.ShouldBeNil)
	b, err := (&ModelConfig{Links: []LinkConfig{
		{Name: "j0", Joint: &JointConfig{Type: "revolute", Axis: r3.Vector{Z: 1}, Min: -2, Max: 2}},
		{Name: "j1", Parent: "j0", Joint: &JointConfig{Type: "prismatic", Axis: r3.Vector{X: 1}, Min: 0, Max: 3}},
	}}).ParseConfig("b")
	test.That(t, err, test.ShouldBeNil)

	_, err = NewRobotSet(a, a)
	test.That(t, err, test.ShouldNotBeNil)

	rs, err := NewRobotSet(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rs.DoF(), test.ShouldHaveLength, 3)

	parts, err := rs.Split([]float64{0.5, 1, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parts[0], test.ShouldResemble, []float64{0.5})
	test.That(t, parts[1], test.ShouldResemble, []float64{1, 2})

	fks, err := rs.ComputeFK([]float64{0.5, 1, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fks, test.ShouldHaveLength, 2)

	//nolint:gosec
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		test.That(t, rs.Contains(rs.Sample(rng)), test.ShouldBeTrue)
	}
	test.That(t, rs.Clip([]float64{5, -5, 1}), test.ShouldResemble, []float64{1, -2, 1})
	test.That(t, rs.Contains([]float64{5, -5, 1}), test.ShouldBeFalse)
}

func TestLinkMaterialsReset(t *testing.T) {
	base := Material{Name: "base"}
	lm := NewLinkMaterials(4, base)
	red := Material{Name: "red", Color: [4]float64{1, 0, 0, 1}}
	blue := Material{Name: "blue", Color: [4]float64{0, 0, 1, 1}}

	test.That(t, lm.Guard(2), test.ShouldBeNil)
	for i := 0; i < 4; i++ {
		test.That(t, lm.Change(i, red), test.ShouldBeNil)
	}
	test.That(t, lm.Change(1, blue), test.ShouldBeNil)
	lm.Reset()

	for _, i := range []int{0, 1, 3} {
		cur, err := lm.Current(i)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cur, test.ShouldResemble, base)
	}
	cur, err := lm.Current(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cur, test.ShouldResemble, red)

	lm.Unguard(2)
	test.That(t, lm.SetBase(2, blue), test.ShouldBeNil)
	lm.Reset()
	cur, _ = lm.Current(2)
	test.That(t, cur, test.ShouldResemble, blue)

	test.That(t, lm.Change(9, red), test.ShouldNotBeNil)
}
