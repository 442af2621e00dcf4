// Package objective holds scalar objectives over whole configurations. The collision terms turn
// contact queries into a differentiable cost and feed SURGE's collision budget.
package objective

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/referenceframe"
	"github.com/lynxrobotics/lynx/utils"
)

// IsolatedTerm is a scalar objective for an optimizer.
type IsolatedTerm interface {
	Call(x []float64) (float64, error)
	Gradient(x []float64) ([]float64, error)
}

// Scope is the set of pairs a collision term looks at.
type Scope int

const (
	// SelfScope checks each robot against itself.
	SelfScope Scope = iota
	// EnvironmentScope checks each robot against the environment.
	EnvironmentScope
	// MultiRobotScope checks robots against each other.
	MultiRobotScope
)

func (s Scope) String() string {
	switch s {
	case SelfScope:
		return "self"
	case EnvironmentScope:
		return "environment"
	case MultiRobotScope:
		return "multi_robot"
	}
	return "unknown"
}

// ParseScope returns the scope with the given name.
func ParseScope(name string) (Scope, error) {
	for _, s := range []Scope{SelfScope, EnvironmentScope, MultiRobotScope} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown collision scope %q", name)
}

// Options configure a collision term.
type Options struct {
	Level collision.GeometryLevel `json:"geometry_level"`

	// Contacts closer than this are penalized.
	Margin float64 `json:"margin"`

	// Number of deepest contacts kept as the focus between full queries.
	FocusN int `json:"focus_n"`

	// Run a full query after this many focused calls.
	RefreshEvery int `json:"refresh_every"`

	// Run a full query when x moved farther than this from the last full query.
	RefreshDistance float64 `json:"refresh_distance"`

	// Finite difference step of Gradient.
	Epsilon float64 `json:"epsilon"`
}

// NewDefaultOptions returns OBB level options.
func NewDefaultOptions() Options {
	return Options{
		Level:           collision.OBB,
		Margin:          0.05,
		FocusN:          10,
		RefreshEvery:    10,
		RefreshDistance: 0.1,
		Epsilon:         1e-4,
	}
}

// CollisionTerm penalizes contacts of one scope. The cost of a contact is its squared margin
// violation, depth plus margin, scaled by the pair's inverse average distance.
//
// A full query records the FocusN deepest contacts; calls until the next refresh query only those
// pairs.
type CollisionTerm struct {
	scope  Scope
	robots *referenceframe.RobotSet
	engine *collision.Engine
	opts   Options

	mu             sync.Mutex
	hasFocus       bool
	focus          [][]collision.IndexQuad
	focusPairs     []collision.PairIndex
	lastFull       []float64
	callsSinceFull int
	fullQueries    int
}

// NewCollisionTerm returns a term of scope over robots posed in engine. Robot order must match.
func NewCollisionTerm(scope Scope, robots *referenceframe.RobotSet, engine *collision.Engine, opts Options) (*CollisionTerm, error) {
	if robots.NumRobots() != len(engine.Robots()) {
		return nil, errors.Errorf("robot set has %d robots but the engine has %d", robots.NumRobots(), len(engine.Robots()))
	}
	if opts.Epsilon <= 0 {
		return nil, errors.New("gradient epsilon must be positive")
	}
	return &CollisionTerm{scope: scope, robots: robots, engine: engine, opts: opts}, nil
}

// NewSelfCollisionTerm is NewCollisionTerm with SelfScope.
func NewSelfCollisionTerm(robots *referenceframe.RobotSet, engine *collision.Engine, opts Options) (*CollisionTerm, error) {
	return NewCollisionTerm(SelfScope, robots, engine, opts)
}

// NewEnvironmentCollisionTerm is NewCollisionTerm with EnvironmentScope.
func NewEnvironmentCollisionTerm(robots *referenceframe.RobotSet, engine *collision.Engine, opts Options) (*CollisionTerm, error) {
	return NewCollisionTerm(EnvironmentScope, robots, engine, opts)
}

// NewMultiRobotCollisionTerm is NewCollisionTerm with MultiRobotScope.
func NewMultiRobotCollisionTerm(robots *referenceframe.RobotSet, engine *collision.Engine, opts Options) (*CollisionTerm, error) {
	return NewCollisionTerm(MultiRobotScope, robots, engine, opts)
}

// FullQueries returns how many full queries the term ran.
func (ct *CollisionTerm) FullQueries() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.fullQueries
}

// Call implements IsolatedTerm.
func (ct *CollisionTerm) Call(x []float64) (float64, error) {
	fks, err := ct.robots.ComputeFK(x)
	if err != nil {
		return 0, err
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.needsRefresh(x) {
		return ct.refresh(x, fks)
	}
	ct.callsSinceFull++
	return ct.focused(fks)
}

// Gradient implements IsolatedTerm with forward differences over the focus at x.
func (ct *CollisionTerm) Gradient(x []float64) ([]float64, error) {
	parts, err := ct.robots.Split(x)
	if err != nil {
		return nil, err
	}
	perts := make([]*referenceframe.FKGradientPerturbations, len(parts))
	base := make([]*referenceframe.FKResult, len(parts))
	for r, m := range ct.robots.Models() {
		if perts[r], err = referenceframe.ComputeFKGradientPerturbations(m, parts[r], ct.opts.Epsilon); err != nil {
			return nil, err
		}
		base[r] = perts[r].FK
	}

	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.needsRefresh(x) {
		if _, err := ct.refresh(x, base); err != nil {
			return nil, err
		}
	}
	f0, err := ct.focused(base)
	if err != nil {
		return nil, err
	}
	grad := make([]float64, 0, len(x))
	for r := range perts {
		for _, pfk := range perts[r].Perturbations {
			fks := append([]*referenceframe.FKResult{}, base...)
			fks[r] = pfk
			f, err := ct.focused(fks)
			if err != nil {
				return nil, err
			}
			grad = append(grad, (f-f0)/ct.opts.Epsilon)
		}
	}
	return grad, nil
}

func (ct *CollisionTerm) needsRefresh(x []float64) bool {
	return !ct.hasFocus ||
		ct.callsSinceFull >= ct.opts.RefreshEvery ||
		utils.L2Distance(x, ct.lastFull) > ct.opts.RefreshDistance
}

// refresh runs the full query at x, records its deepest contacts as the new focus and returns the
// cost.
func (ct *CollisionTerm) refresh(x []float64, fks []*referenceframe.FKResult) (float64, error) {
	ct.fullQueries++
	ct.hasFocus = true
	ct.lastFull = utils.Clone(x)
	ct.callsSinceFull = 0

	switch ct.scope {
	case MultiRobotScope:
		res, err := ct.engine.MultiRobotContact(fks, ct.opts.Level, false, ct.opts.Margin)
		if err != nil {
			return 0, err
		}
		ct.focusPairs = res.GetClosestNPairIdxs(ct.opts.FocusN)
		return contactCost(res, ct.opts.Margin), nil
	case SelfScope, EnvironmentScope:
	}

	total := 0.
	ct.focus = make([][]collision.IndexQuad, len(fks))
	var errs error
	for r, module := range ct.engine.Robots() {
		var res *collision.ContactResult
		var err error
		if ct.scope == SelfScope {
			res, err = module.SelfContact(fks[r], ct.opts.Level, false, ct.opts.Margin)
		} else {
			res, err = module.EnvironmentContact(fks[r], ct.engine.Environment(), ct.opts.Level, false, ct.opts.Margin)
		}
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "robot %q", module.Name()))
			continue
		}
		ct.focus[r] = res.GetClosestNContactIdxs(ct.opts.FocusN)
		total += contactCost(res, ct.opts.Margin)
	}
	return total, errs
}

// focused evaluates the cost over the current focus only.
func (ct *CollisionTerm) focused(fks []*referenceframe.FKResult) (float64, error) {
	if ct.scope == MultiRobotScope {
		res, err := ct.engine.MultiRobotContactSubset(fks, ct.opts.Level, ct.focusPairs, false, ct.opts.Margin)
		if err != nil {
			return 0, err
		}
		return contactCost(res, ct.opts.Margin), nil
	}
	total := 0.
	for r, module := range ct.engine.Robots() {
		if len(ct.focus[r]) == 0 {
			continue
		}
		var res *collision.ContactResult
		var err error
		if ct.scope == SelfScope {
			res, err = module.SelfContactSubset(fks[r], ct.opts.Level, ct.focus[r], false, ct.opts.Margin)
		} else {
			res, err = module.EnvironmentContactSubset(fks[r], ct.engine.Environment(), ct.opts.Level, ct.focus[r], false, ct.opts.Margin)
		}
		if err != nil {
			return 0, errors.Wrapf(err, "robot %q", module.Name())
		}
		total += contactCost(res, ct.opts.Margin)
	}
	return total, nil
}

func contactCost(res *collision.ContactResult, margin float64) float64 {
	total := 0.
	for _, e := range res.Entries {
		scale := 1.
		if e.Contact.Depth != 0 {
			scale = e.Normalized / e.Contact.Depth
		}
		v := e.Contact.Depth + margin
		total += scale * v * v
	}
	return total
}
