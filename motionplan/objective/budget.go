package objective

import (
	"github.com/pkg/errors"
)

// Budget is a weighted sum of isolated terms. It is the cost function behind SURGE's collision
// budget term.
type Budget struct {
	terms   []IsolatedTerm
	weights []float64
}

// NewBudget returns an empty budget.
func NewBudget() *Budget {
	return &Budget{}
}

// Add appends a term with the given weight.
func (b *Budget) Add(term IsolatedTerm, weight float64) *Budget {
	b.terms = append(b.terms, term)
	b.weights = append(b.weights, weight)
	return b
}

// Len returns the number of terms.
func (b *Budget) Len() int {
	return len(b.terms)
}

// Call implements IsolatedTerm.
func (b *Budget) Call(x []float64) (float64, error) {
	total := 0.
	for i, term := range b.terms {
		v, err := term.Call(x)
		if err != nil {
			return 0, errors.Wrapf(err, "budget term %d", i)
		}
		total += b.weights[i] * v
	}
	return total, nil
}

// Gradient implements IsolatedTerm.
func (b *Budget) Gradient(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, term := range b.terms {
		g, err := term.Gradient(x)
		if err != nil {
			return nil, errors.Wrapf(err, "budget term %d", i)
		}
		if len(g) != len(x) {
			return nil, errors.Errorf("budget term %d returned %d partials for %d coordinates", i, len(g), len(x))
		}
		for j := range g {
			out[j] += b.weights[i] * g[j]
		}
	}
	return out, nil
}
