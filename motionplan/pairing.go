package motionplan

import (
	"sort"
)

// IndexPairing keeps a bijection between two index spaces, such as point indices and DAG node ids.
type IndexPairing struct {
	aToB map[int]int
	bToA map[int]int
}

// NewIndexPairing returns an empty pairing.
func NewIndexPairing() *IndexPairing {
	return &IndexPairing{aToB: map[int]int{}, bToA: map[int]int{}}
}

// Pair links a and b. Pairing an index that is already linked to a different partner is an
// InternalInvariantError; repeating an existing pair is a no-op.
func (ip *IndexPairing) Pair(a, b int) error {
	if got, ok := ip.aToB[a]; ok {
		if got != b {
			return NewInternalInvariantError("index %d already paired with %d, cannot pair with %d", a, got, b)
		}
		return nil
	}
	if got, ok := ip.bToA[b]; ok {
		return NewInternalInvariantError("index %d already paired with %d, cannot pair with %d", b, got, a)
	}
	ip.aToB[a] = b
	ip.bToA[b] = a
	return nil
}

// B returns the partner of a.
func (ip *IndexPairing) B(a int) (int, bool) {
	b, ok := ip.aToB[a]
	return b, ok
}

// A returns the partner of b.
func (ip *IndexPairing) A(b int) (int, bool) {
	a, ok := ip.bToA[b]
	return a, ok
}

// MustB returns the partner of a or an InternalInvariantError.
func (ip *IndexPairing) MustB(a int) (int, error) {
	b, ok := ip.aToB[a]
	if !ok {
		return 0, NewInternalInvariantError("index %d has no partner", a)
	}
	return b, nil
}

// MustA returns the partner of b or an InternalInvariantError.
func (ip *IndexPairing) MustA(b int) (int, error) {
	a, ok := ip.bToA[b]
	if !ok {
		return 0, NewInternalInvariantError("index %d has no partner", b)
	}
	return a, nil
}

// Len returns the number of pairs.
func (ip *IndexPairing) Len() int {
	return len(ip.aToB)
}

// As returns every paired a index in increasing order.
func (ip *IndexPairing) As() []int {
	out := make([]int, 0, len(ip.aToB))
	for a := range ip.aToB {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

// Verify checks that both directions agree.
func (ip *IndexPairing) Verify() error {
	if len(ip.aToB) != len(ip.bToA) {
		return NewInternalInvariantError("pairing sizes differ: %d vs %d", len(ip.aToB), len(ip.bToA))
	}
	for a, b := range ip.aToB {
		if back, ok := ip.bToA[b]; !ok || back != a {
			return NewInternalInvariantError("pair %d -> %d is not mirrored", a, b)
		}
	}
	return nil
}

// Clone returns an independent copy.
func (ip *IndexPairing) Clone() *IndexPairing {
	c := NewIndexPairing()
	for a, b := range ip.aToB {
		c.aToB[a] = b
		c.bToA[b] = a
	}
	return c
}
