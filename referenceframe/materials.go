package referenceframe

import (
	"sync"

	"github.com/pkg/errors"
)

// Material is the display material of a link, kept as an opaque name plus an RGBA color.
type Material struct {
	Name  string     `json:"name"`
	Color [4]float64 `json:"color"`
}

// LinkMaterials tracks the base and current material of every link. Guarded links keep their current
// material when the set is reset.
type LinkMaterials struct {
	mu      sync.Mutex
	base    []Material
	current []Material
	guarded map[int]struct{}
}

// NewLinkMaterials gives every one of numLinks links the same base material.
func NewLinkMaterials(numLinks int, base Material) *LinkMaterials {
	lm := &LinkMaterials{
		base:    make([]Material, numLinks),
		current: make([]Material, numLinks),
		guarded: map[int]struct{}{},
	}
	for i := range lm.base {
		lm.base[i] = base
		lm.current[i] = base
	}
	return lm
}

func (lm *LinkMaterials) check(link int) error {
	if link < 0 || link >= len(lm.base) {
		return errors.Errorf("link index %d out of range [0, %d)", link, len(lm.base))
	}
	return nil
}

// SetBase changes the base material of a link, which is what reset restores.
func (lm *LinkMaterials) SetBase(link int, m Material) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.check(link); err != nil {
		return err
	}
	lm.base[link] = m
	return nil
}

// Change sets the current material of a link.
func (lm *LinkMaterials) Change(link int, m Material) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.check(link); err != nil {
		return err
	}
	lm.current[link] = m
	return nil
}

// Guard exempts a link from Reset.
func (lm *LinkMaterials) Guard(link int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.check(link); err != nil {
		return err
	}
	lm.guarded[link] = struct{}{}
	return nil
}

// Unguard makes a link subject to Reset again.
func (lm *LinkMaterials) Unguard(link int) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.guarded, link)
}

// Reset restores the base material on every link that is not guarded.
func (lm *LinkMaterials) Reset() {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for i := range lm.current {
		if _, ok := lm.guarded[i]; !ok {
			lm.current[i] = lm.base[i]
		}
	}
}

// Current returns the current material of a link.
func (lm *LinkMaterials) Current(link int) (Material, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if err := lm.check(link); err != nil {
		return Material{}, err
	}
	return lm.current[link], nil
}
