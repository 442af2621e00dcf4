package surge

import (
	"github.com/tidwall/btree"
)

// CachePage is the scratch space one objective term keeps on one connection: bookmarks and
// memoized partial results.
type CachePage struct {
	Floats []float64
	Uints  []int
}

// Orientation is the part of a connection record that depends on which point is the anchor: one
// page per objective term and the memoized combined score.
type Orientation struct {
	Pages []CachePage

	score      float64
	scoreValid bool
}

// Score returns the memoized combined score.
func (o *Orientation) Score() (float64, bool) {
	return o.score, o.scoreValid
}

func (o *Orientation) setScore(s float64) {
	o.score = s
	o.scoreValid = true
}

// ConnectionInfo is the record of one unordered pair of points. Attempting the pair in either
// direction kills it.
type ConnectionInfo struct {
	IsDead bool

	orientations [2]Orientation
}

// Oriented returns the part of the record for connecting anchor to target.
func (ci *ConnectionInfo) Oriented(anchor, target int) *Orientation {
	if anchor <= target {
		return &ci.orientations[0]
	}
	return &ci.orientations[1]
}

// ConnectionCache holds the lazily created records of point pairs, ordered by pair key.
type ConnectionCache struct {
	numTerms int
	infos    btree.Map[uint64, *ConnectionInfo]
}

// NewConnectionCache returns a cache whose records carry one page per objective term.
func NewConnectionCache(numTerms int) *ConnectionCache {
	return &ConnectionCache{numTerms: numTerms}
}

func pairKey(a, b int) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

// Get returns the record of the pair {a, b}, creating it on first use.
func (cc *ConnectionCache) Get(a, b int) *ConnectionInfo {
	key := pairKey(a, b)
	if info, ok := cc.infos.Get(key); ok {
		return info
	}
	info := &ConnectionInfo{}
	for i := range info.orientations {
		info.orientations[i].Pages = make([]CachePage, cc.numTerms)
	}
	cc.infos.Set(key, info)
	return info
}

// Peek returns the record of the pair {a, b} without creating it.
func (cc *ConnectionCache) Peek(a, b int) (*ConnectionInfo, bool) {
	return cc.infos.Get(pairKey(a, b))
}

// IsDead reports whether the pair was already attempted.
func (cc *ConnectionCache) IsDead(a, b int) bool {
	info, ok := cc.Peek(a, b)
	return ok && info.IsDead
}

// MarkDead records that the pair was attempted.
func (cc *ConnectionCache) MarkDead(a, b int) {
	cc.Get(a, b).IsDead = true
}

// FlushScores drops every memoized combined score. Term pages are kept.
func (cc *ConnectionCache) FlushScores() {
	cc.infos.Scan(func(_ uint64, info *ConnectionInfo) bool {
		info.orientations[0].scoreValid = false
		info.orientations[1].scoreValid = false
		return true
	})
}

// Len returns the number of records.
func (cc *ConnectionCache) Len() int {
	return cc.infos.Len()
}

// NumDead returns the number of attempted pairs.
func (cc *ConnectionCache) NumDead() int {
	n := 0
	cc.infos.Scan(func(_ uint64, info *ConnectionInfo) bool {
		if info.IsDead {
			n++
		}
		return true
	})
	return n
}
