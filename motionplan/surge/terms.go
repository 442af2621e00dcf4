package surge

import (
	"math"
	"sync"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/utils"
)

// TermKind selects the measure an objective term computes.
type TermKind int

const (
	// PairwiseDis is the distance between anchor and target. Lower is better.
	PairwiseDis TermKind = iota
	// DisToEndStateSet is the distance from the target to the nearest state the anchor's DAG is
	// heading for. Lower is better.
	DisToEndStateSet
	// CloserToTargetDag rewards targets that are closer than the anchor to the nearest node of the
	// opposite DAG. Higher is better.
	CloserToTargetDag
	// CloserToSingleEndStateRatio is CloserToTargetDag measured against the first opposite state.
	// Higher is better.
	CloserToSingleEndStateRatio
	// LocalMinAvoid rewards pairs far from previously failed connections. Higher is better.
	LocalMinAvoid
	// CollisionBudget is the collision cost of the target configuration. Lower is better.
	CollisionBudget
	// Custom calls a user function.
	Custom
)

var termKindNames = [...]string{
	"pairwise_dis", "dis_to_end_state_set", "closer_to_target_dag", "closer_to_single_end_state_ratio",
	"local_min_avoid", "collision_budget", "custom",
}

func (k TermKind) String() string {
	if k < 0 || int(k) >= len(termKindNames) {
		return "unknown"
	}
	return termKindNames[k]
}

// ParseTermKind returns the kind with the given name.
func ParseTermKind(name string) (TermKind, error) {
	for i, n := range termKindNames {
		if n == name {
			return TermKind(i), nil
		}
	}
	return 0, errors.Errorf("unknown objective term %q", name)
}

// CustomFunc scores a pair of configurations. The page persists across calls on the same pair.
type CustomFunc func(anchor, target []float64, page *CachePage) float64

// CostFunction is a scalar cost over configurations, such as a collision objective.
type CostFunction interface {
	Call(q []float64) (float64, error)
}

const ratioSigma = 1.

// Term is one weighted measure of an ObjectiveStack.
type Term struct {
	Kind   TermKind
	Weight float64

	// Custom is the function of a Custom term, and CustomLowerIsBetter its direction.
	Custom              CustomFunc
	CustomLowerIsBetter bool

	// Budget is the cost of a CollisionBudget term.
	Budget CostFunction

	// Sigma scales LocalMinAvoid distances. Zero means 1.
	Sigma float64

	failures [][2][]float64

	mu     sync.Mutex
	budget map[int]float64
}

// NewTerm returns a term of kind with weight.
func NewTerm(kind TermKind, weight float64) *Term {
	return &Term{Kind: kind, Weight: weight}
}

// NewCustomTerm wraps fn.
func NewCustomTerm(fn CustomFunc, weight float64, lowerIsBetter bool) *Term {
	return &Term{Kind: Custom, Weight: weight, Custom: fn, CustomLowerIsBetter: lowerIsBetter}
}

// NewCollisionBudgetTerm scores targets by cost.
func NewCollisionBudgetTerm(cost CostFunction, weight float64) *Term {
	return &Term{Kind: CollisionBudget, Weight: weight, Budget: cost}
}

// LowerIsBetter reports the direction of the term.
func (t *Term) LowerIsBetter() bool {
	switch t.Kind {
	case PairwiseDis, DisToEndStateSet, CollisionBudget:
		return true
	case CloserToTargetDag, CloserToSingleEndStateRatio, LocalMinAvoid:
		return false
	case Custom:
		return t.CustomLowerIsBetter
	}
	return true
}

func (t *Term) validate() error {
	if int(t.Kind) < 0 || int(t.Kind) >= len(termKindNames) {
		return errors.Errorf("unknown objective term kind %d", t.Kind)
	}
	if t.Kind == Custom && t.Custom == nil {
		return errors.New("custom objective term needs a function")
	}
	if t.Kind == CollisionBudget && t.Budget == nil {
		return errors.New("collision budget term needs a cost function")
	}
	return nil
}

// Initialize resets the term's state for a new points set.
func (t *Term) Initialize(_ *Points) {
	t.failures = nil
	t.mu.Lock()
	t.budget = map[int]float64{}
	t.mu.Unlock()
}

// clone returns a term with the same settings and fresh state.
func (t *Term) clone() *Term {
	return &Term{
		Kind:                t.Kind,
		Weight:              t.Weight,
		Custom:              t.Custom,
		CustomLowerIsBetter: t.CustomLowerIsBetter,
		Budget:              t.Budget,
		Sigma:               t.Sigma,
	}
}

// Call scores the connection from anchor to target. page belongs to this term on this pair.
func (t *Term) Call(anchor, target int, points *Points, page *CachePage) (float64, error) {
	qa, qt := points.Config(anchor), points.Config(target)
	side := points.Role(anchor).Side()
	switch t.Kind {
	case PairwiseDis:
		return utils.L2Distance(qa, qt), nil
	case DisToEndStateSet:
		return t.disToStateSet(qt, points, side, page), nil
	case CloserToTargetDag:
		nearest, ok := nearestOnSide(qt, points, side.Opposite())
		if !ok {
			return 0, nil
		}
		return closerRatio(qa, qt, nearest), nil
	case CloserToSingleEndStateRatio:
		states := points.WithRole(oppositeState(side))
		if len(states) == 0 {
			return 0, nil
		}
		return closerRatio(qa, qt, points.Config(states[0])), nil
	case LocalMinAvoid:
		return t.localMinAvoid(qa, qt, page), nil
	case CollisionBudget:
		return t.collisionBudget(target, qt)
	case Custom:
		return t.Custom(qa, qt, page), nil
	}
	return 0, errors.Errorf("unknown objective term kind %d", t.Kind)
}

// UpdateAfterConnectionAttempt lets the term learn from an attempt. It reports whether memoized
// scores of every connection are stale.
func (t *Term) UpdateAfterConnectionAttempt(anchor, target int, points *Points, success bool) bool {
	switch t.Kind {
	case CloserToTargetDag:
		// The opposite DAG may have grown.
		return success
	case LocalMinAvoid:
		if success {
			return false
		}
		t.failures = append(t.failures, [2][]float64{points.Config(anchor), points.Config(target)})
		return true
	case Custom:
		return true
	case PairwiseDis, DisToEndStateSet, CloserToSingleEndStateRatio, CollisionBudget:
	}
	return false
}

func oppositeState(side Side) Role {
	if side == EndSide {
		return StartState
	}
	return EndState
}

// disToStateSet keeps in the page the number of states already compared and the smallest distance
// among them, so states added later are compared only once.
func (t *Term) disToStateSet(qt []float64, points *Points, side Side, page *CachePage) float64 {
	states := points.WithRole(oppositeState(side))
	if len(page.Uints) == 0 {
		page.Uints = []int{0}
		page.Floats = []float64{math.Inf(1)}
	}
	for _, s := range states[page.Uints[0]:] {
		page.Floats[0] = math.Min(page.Floats[0], utils.L2Distance(qt, points.Config(s)))
	}
	page.Uints[0] = len(states)
	return page.Floats[0]
}

func nearestOnSide(q []float64, points *Points, side Side) ([]float64, bool) {
	var best []float64
	bestDist := math.Inf(1)
	for _, i := range points.OnSide(side) {
		if d := utils.L2Distance(q, points.Config(i)); d < bestDist {
			best, bestDist = points.Config(i), d
		}
	}
	return best, best != nil
}

// closerRatio is a Gaussian of how far the target is from reference relative to the anchor.
func closerRatio(qa, qt, reference []float64) float64 {
	from := utils.L2Distance(qa, reference)
	if from == 0 {
		return 0
	}
	r := utils.L2Distance(qt, reference) / from
	return math.Exp(-r * r / (2 * ratioSigma * ratioSigma))
}

// segmentDistance is the distance from q to the segment [a, b].
func segmentDistance(q, a, b []float64) float64 {
	ab := utils.Sub(b, a)
	denom := utils.Dot(ab, ab)
	if denom == 0 {
		return utils.L2Distance(q, a)
	}
	s := utils.Clamp(utils.Dot(utils.Sub(q, a), ab)/denom, 0, 1)
	return utils.L2Distance(q, utils.Lerp(a, b, s))
}

// localMinAvoid multiplies, over every failed connection, one minus a Gaussian of the product of
// the anchor's and target's distances to the failed segment. The page holds the number of failures
// folded in and the running product.
func (t *Term) localMinAvoid(qa, qt []float64, page *CachePage) float64 {
	sigma := t.Sigma
	if sigma == 0 {
		sigma = 1
	}
	if len(page.Uints) == 0 {
		page.Uints = []int{0}
		page.Floats = []float64{1}
	}
	for _, f := range t.failures[utils.MinInt(page.Uints[0], len(t.failures)):] {
		d := segmentDistance(qa, f[0], f[1]) * segmentDistance(qt, f[0], f[1])
		page.Floats[0] *= 1 - 0.5*math.Exp(-d*d/(2*sigma*sigma))
	}
	page.Uints[0] = len(t.failures)
	return page.Floats[0]
}

func (t *Term) collisionBudget(target int, qt []float64) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.budget == nil {
		t.budget = map[int]float64{}
	}
	if v, ok := t.budget[target]; ok {
		return v, nil
	}
	v, err := t.Budget.Call(qt)
	if err != nil {
		return 0, err
	}
	t.budget[target] = v
	return v, nil
}
