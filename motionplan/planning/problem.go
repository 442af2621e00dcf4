package planning

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/motionplan"
	"github.com/lynxrobotics/lynx/motionplan/objective"
	"github.com/lynxrobotics/lynx/motionplan/sprint"
	"github.com/lynxrobotics/lynx/motionplan/surge"
	"github.com/lynxrobotics/lynx/referenceframe"
	"github.com/lynxrobotics/lynx/spatialmath"
)

// Problem is a planning problem as written in a YAML or JSON file.
type Problem struct {
	Robots      []RobotSpec    `json:"robots"`
	Environment []ObstacleList `json:"environment,omitempty"`
	Start       []float64      `json:"start"`
	Goal        []float64      `json:"goal"`

	// Directory holding link shapes and trained tensors. Tensors are not used when empty.
	MetadataDir string `json:"metadata_dir,omitempty"`

	// Overrides of motionplan.PlannerOptions, sprint.Options and surge.Options by JSON name.
	Planner map[string]interface{} `json:"planner,omitempty"`
	Sprint  map[string]interface{} `json:"sprint,omitempty"`
	Surge   map[string]interface{} `json:"surge,omitempty"`

	// SURGE objective terms. The default stack is used when empty.
	Objectives []ObjectiveSpec `json:"objectives,omitempty"`

	// Run SPRINT alone instead of SURGE over SPRINT.
	LocalOnly bool `json:"local_only,omitempty"`
}

// RobotSpec names a kinematics file, relative to the problem file, or inlines the model.
type RobotSpec struct {
	File  string                 `json:"file,omitempty"`
	Model map[string]interface{} `json:"model,omitempty"`
}

// ObstacleList is a named list of world boxes.
type ObstacleList struct {
	Name  string    `json:"name"`
	Boxes []BoxSpec `json:"boxes"`
}

// BoxSpec is an axis aligned box.
type BoxSpec struct {
	Label  string    `json:"label,omitempty"`
	Center r3.Vector `json:"center"`
	Dims   r3.Vector `json:"dims"`
}

// ObjectiveSpec is one SURGE objective term. Scopes apply to collision_budget terms and default to
// every scope.
type ObjectiveSpec struct {
	Kind   string   `json:"kind"`
	Weight float64  `json:"weight"`
	Scopes []string `json:"scopes,omitempty"`
}

// LoadProblem reads a problem file. Robot files are resolved against its directory.
func LoadProblem(path string) (*Problem, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read problem file")
	}
	return ParseProblem(raw, filepath.Dir(path))
}

// ParseProblem decodes a YAML or JSON problem. Relative paths are resolved against dir.
func ParseProblem(raw []byte, dir string) (*Problem, error) {
	attrs := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &attrs); err != nil {
		return nil, errors.Wrap(err, "failed to parse problem")
	}
	p := &Problem{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "failed to decode problem")
	}
	for i := range p.Robots {
		if p.Robots[i].File != "" && !filepath.IsAbs(p.Robots[i].File) {
			p.Robots[i].File = filepath.Join(dir, p.Robots[i].File)
		}
	}
	if p.MetadataDir != "" && !filepath.IsAbs(p.MetadataDir) {
		p.MetadataDir = filepath.Join(dir, p.MetadataDir)
	}
	return p, p.Validate()
}

// Validate checks the parts of a problem that do not need the models.
func (p *Problem) Validate() error {
	if len(p.Robots) == 0 {
		return errors.New("problem needs at least one robot")
	}
	for i, r := range p.Robots {
		if (r.File == "") == (r.Model == nil) {
			return errors.Errorf("robot %d needs exactly one of file or model", i)
		}
	}
	if len(p.Start) == 0 || len(p.Goal) == 0 {
		return errors.New("problem needs a start and a goal")
	}
	return nil
}

// Setup is everything a plan call needs, built from a problem.
type Setup struct {
	LocalOnly bool

	Robots  *referenceframe.RobotSet
	Engine  *collision.Engine
	Options *motionplan.PlannerOptions
	Sprint  *sprint.Options
	Surge   *surge.Options
	Stack   *surge.ObjectiveStack
}

// Build loads the models, builds the collision engine and resolves every option.
func (p *Problem) Build(logger logging.Logger) (*Setup, error) {
	models := make([]referenceframe.Model, 0, len(p.Robots))
	for i, r := range p.Robots {
		m, err := r.load()
		if err != nil {
			return nil, errors.Wrapf(err, "robot %d", i)
		}
		models = append(models, m)
	}
	robots, err := referenceframe.NewRobotSet(models...)
	if err != nil {
		return nil, err
	}
	if dof := len(robots.DoF()); len(p.Start) != dof || len(p.Goal) != dof {
		return nil, referenceframe.NewIncorrectDoFError(len(p.Start), dof)
	}

	env, err := p.environment()
	if err != nil {
		return nil, err
	}
	cfg := collision.ModuleConfig{MetadataRoot: p.MetadataDir}
	if p.MetadataDir != "" {
		cfg.Cache = collision.NewTensorCache(collision.NewFileTensorStore(p.MetadataDir), logger)
	}
	modules := make([]*collision.RobotModule, 0, len(models))
	for _, m := range models {
		module, err := collision.BuildRobotModule(m.(collision.LinkGeometryModel), cfg, logger)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	engine, err := collision.NewEngine(logger, env, modules...)
	if err != nil {
		return nil, err
	}

	opts, err := motionplan.NewPlannerOptionsFromExtra(p.Planner)
	if err != nil {
		return nil, err
	}
	sprintOpts := sprint.NewOptionsFromPlannerOptions(opts)
	if err := applyExtra(sprintOpts, p.Sprint); err != nil {
		return nil, errors.Wrap(err, "sprint options")
	}
	surgeOpts := surge.NewDefaultOptions()
	surgeOpts.NumThreads = opts.NumThreads
	surgeOpts.MinPartialSpacing = opts.StepLength
	if err := applyExtra(surgeOpts, p.Surge); err != nil {
		return nil, errors.Wrap(err, "surge options")
	}

	setup := &Setup{LocalOnly: p.LocalOnly, Robots: robots, Engine: engine, Options: opts, Sprint: sprintOpts, Surge: surgeOpts}
	if setup.Stack, err = p.objectiveStack(setup); err != nil {
		return nil, err
	}
	return setup, nil
}

func (r RobotSpec) load() (referenceframe.Model, error) {
	if r.File != "" {
		return referenceframe.ParseModelJSONFile(r.File, "")
	}
	cfg, err := referenceframe.ModelConfigFromMap(r.Model)
	if err != nil {
		return nil, err
	}
	return cfg.ParseConfig("")
}

func (p *Problem) environment() (*collision.Environment, error) {
	names := make([]string, 0, len(p.Environment))
	geometries := make([][]spatialmath.Geometry, 0, len(p.Environment))
	for _, list := range p.Environment {
		var boxes []spatialmath.Geometry
		for _, b := range list.Boxes {
			box, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(b.Center), b.Dims, b.Label)
			if err != nil {
				return nil, errors.Wrapf(err, "environment list %q", list.Name)
			}
			boxes = append(boxes, box)
		}
		names = append(names, list.Name)
		geometries = append(geometries, boxes)
	}
	return collision.NewEnvironment(names, geometries)
}

func (p *Problem) objectiveStack(setup *Setup) (*surge.ObjectiveStack, error) {
	if len(p.Objectives) == 0 {
		return surge.NewDefaultObjectiveStack(), nil
	}
	terms := make([]*surge.Term, 0, len(p.Objectives))
	for _, spec := range p.Objectives {
		kind, err := surge.ParseTermKind(spec.Kind)
		if err != nil {
			return nil, err
		}
		if kind != surge.CollisionBudget {
			terms = append(terms, surge.NewTerm(kind, spec.Weight))
			continue
		}
		budget, err := collisionBudget(setup, spec.Scopes)
		if err != nil {
			return nil, err
		}
		terms = append(terms, surge.NewCollisionBudgetTerm(budget, spec.Weight))
	}
	return surge.NewObjectiveStack(terms...)
}

// collisionBudget sums collision terms of the named scopes over a private engine clone.
func collisionBudget(setup *Setup, scopes []string) (*objective.Budget, error) {
	if len(scopes) == 0 {
		scopes = []string{objective.SelfScope.String(), objective.EnvironmentScope.String()}
		if setup.Robots.NumRobots() > 1 {
			scopes = append(scopes, objective.MultiRobotScope.String())
		}
	}
	opts := objective.NewDefaultOptions()
	opts.Level = setup.Options.GeometryLevel
	engine := setup.Engine.Clone()
	budget := objective.NewBudget()
	for _, name := range scopes {
		scope, err := objective.ParseScope(name)
		if err != nil {
			return nil, err
		}
		term, err := objective.NewCollisionTerm(scope, setup.Robots, engine, opts)
		if err != nil {
			return nil, err
		}
		budget.Add(term, 1)
	}
	return budget, nil
}

// applyExtra overrides the fields of dst named in extra by their JSON names.
func applyExtra(dst interface{ Validate() error }, extra map[string]interface{}) error {
	if len(extra) > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return err
		}
	}
	return dst.Validate()
}
