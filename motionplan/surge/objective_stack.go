package surge

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ObjectiveStack is a weighted sum of terms that all agree on whether lower or higher scores are
// better.
type ObjectiveStack struct {
	terms         []*Term
	lowerIsBetter bool
}

// NewObjectiveStack builds a stack. Terms must agree on their direction.
func NewObjectiveStack(terms ...*Term) (*ObjectiveStack, error) {
	if len(terms) == 0 {
		return nil, errors.New("objective stack needs at least one term")
	}
	for _, t := range terms {
		if err := t.validate(); err != nil {
			return nil, err
		}
	}
	lower := terms[0].LowerIsBetter()
	if odd, found := lo.Find(terms, func(t *Term) bool { return t.LowerIsBetter() != lower }); found {
		return nil, errors.Errorf(
			"objective term %v disagrees with %v on whether lower scores are better", odd.Kind, terms[0].Kind)
	}
	return &ObjectiveStack{terms: terms, lowerIsBetter: lower}, nil
}

// NewDefaultObjectiveStack ranks by anchor-target distance plus target-goal distance.
func NewDefaultObjectiveStack() *ObjectiveStack {
	return &ObjectiveStack{
		terms:         []*Term{NewTerm(PairwiseDis, 1), NewTerm(DisToEndStateSet, 1)},
		lowerIsBetter: true,
	}
}

// LowerIsBetter reports the direction of the stack.
func (st *ObjectiveStack) LowerIsBetter() bool {
	return st.lowerIsBetter
}

// Terms returns the terms in order.
func (st *ObjectiveStack) Terms() []*Term {
	return st.terms
}

// Better reports whether score a ranks before b.
func (st *ObjectiveStack) Better(a, b float64) bool {
	if st.lowerIsBetter {
		return a < b
	}
	return a > b
}

// Clone returns a stack with the same terms and fresh term state.
func (st *ObjectiveStack) Clone() *ObjectiveStack {
	return &ObjectiveStack{
		terms:         lo.Map(st.terms, func(t *Term, _ int) *Term { return t.clone() }),
		lowerIsBetter: st.lowerIsBetter,
	}
}

// Initialize resets every term for points.
func (st *ObjectiveStack) Initialize(points *Points) {
	for _, t := range st.terms {
		t.Initialize(points)
	}
}

// Score returns the weighted score of connecting anchor to target, memoized on info.
func (st *ObjectiveStack) Score(anchor, target int, points *Points, info *ConnectionInfo) (float64, error) {
	o := info.Oriented(anchor, target)
	if s, ok := o.Score(); ok {
		return s, nil
	}
	total := 0.
	for i, t := range st.terms {
		v, err := t.Call(anchor, target, points, &o.Pages[i])
		if err != nil {
			return 0, errors.Wrapf(err, "objective term %v", t.Kind)
		}
		total += t.Weight * v
	}
	o.setScore(total)
	return total, nil
}

// UpdateAfterConnectionAttempt forwards the attempt to every term and reports whether any of them
// needs memoized scores flushed.
func (st *ObjectiveStack) UpdateAfterConnectionAttempt(anchor, target int, points *Points, success bool) bool {
	flush := false
	for _, t := range st.terms {
		if t.UpdateAfterConnectionAttempt(anchor, target, points, success) {
			flush = true
		}
	}
	return flush
}
