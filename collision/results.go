package collision

import (
	"sort"

	"github.com/samber/lo"

	"github.com/lynxrobotics/lynx/spatialmath"
)

// EnvironmentRobot is the robot index used for the environment side of a pair.
const EnvironmentRobot = -1

// PairIndex addresses a pair of objects, possibly on different robots. For environment pairs
// Robot2 is EnvironmentRobot and Quad[1] is [list, object] in the environment.
type PairIndex struct {
	Robot1 int       `json:"robot1"`
	Robot2 int       `json:"robot2"`
	Quad   IndexQuad `json:"quad"`
}

// Pair describes one checked pair in a result.
type Pair struct {
	Index PairIndex `json:"index"`
	Name1 string    `json:"name1"`
	Name2 string    `json:"name2"`
}

// IntersectResult lists intersecting pairs in discovery order.
type IntersectResult struct {
	Pairs []Pair `json:"pairs"`
}

// InCollision reports whether any pair intersected.
func (r *IntersectResult) InCollision() bool {
	return len(r.Pairs) > 0
}

// DistanceEntry is one pair of a distance query. Distance is 0 for intersecting pairs.
type DistanceEntry struct {
	Pair
	Distance   float64 `json:"distance"`
	Normalized float64 `json:"normalized"`
}

// DistanceResult keeps entries sorted by normalized distance, closest first. Equal keys keep their
// discovery order.
type DistanceResult struct {
	Entries []DistanceEntry `json:"entries"`
}

func (r *DistanceResult) insert(e DistanceEntry) {
	idx := sort.Search(len(r.Entries), func(i int) bool { return r.Entries[i].Normalized > e.Normalized })
	r.Entries = append(r.Entries, DistanceEntry{})
	copy(r.Entries[idx+1:], r.Entries[idx:])
	r.Entries[idx] = e
}

// GetClosestN returns up to n entries, closest first.
func (r *DistanceResult) GetClosestN(n int) []DistanceEntry {
	return r.Entries[:lo.Clamp(n, 0, len(r.Entries))]
}

// ContactEntry is one pair of a contact query.
type ContactEntry struct {
	Pair
	Contact    spatialmath.Contact `json:"contact"`
	Normalized float64             `json:"normalized"`
}

// ContactResult keeps entries sorted by normalized depth, deepest first. Equal keys keep their
// discovery order.
type ContactResult struct {
	Entries []ContactEntry `json:"entries"`
}

func (r *ContactResult) insert(e ContactEntry) {
	idx := sort.Search(len(r.Entries), func(i int) bool { return r.Entries[i].Normalized < e.Normalized })
	r.Entries = append(r.Entries, ContactEntry{})
	copy(r.Entries[idx+1:], r.Entries[idx:])
	r.Entries[idx] = e
}

// InCollision reports whether any contact penetrates.
func (r *ContactResult) InCollision() bool {
	return len(r.Entries) > 0 && r.Entries[0].Contact.Depth > 0
}

// GetClosestN returns up to n entries, deepest first.
func (r *ContactResult) GetClosestN(n int) []ContactEntry {
	return r.Entries[:lo.Clamp(n, 0, len(r.Entries))]
}

// GetClosestNContactIdxs returns the quads of the n deepest contacts.
func (r *ContactResult) GetClosestNContactIdxs(n int) []IndexQuad {
	entries := r.GetClosestN(n)
	out := make([]IndexQuad, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Index.Quad)
	}
	return out
}

// GetClosestNPairIdxs returns the full pair indices of the n deepest contacts.
func (r *ContactResult) GetClosestNPairIdxs(n int) []PairIndex {
	entries := r.GetClosestN(n)
	out := make([]PairIndex, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Index)
	}
	return out
}
