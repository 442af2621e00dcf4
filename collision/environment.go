package collision

import (
	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/spatialmath"
)

// Environment is a set of named lists of static world geometries. The same geometries are used at
// every level.
type Environment struct {
	names []string
	lists [][]*Object
}

// NewEnvironment builds an environment from named geometry lists in world coordinates.
func NewEnvironment(names []string, geometries [][]spatialmath.Geometry) (*Environment, error) {
	if len(names) != len(geometries) {
		return nil, NewDimensionMismatchError("environment names", len(names), len(geometries))
	}
	env := &Environment{}
	seen := map[string]bool{}
	for i, name := range names {
		if seen[name] {
			return nil, errors.Errorf("duplicate environment list %q", name)
		}
		seen[name] = true
		var list []*Object
		for _, g := range geometries[i] {
			label := g.Label()
			if label == "" {
				label = name
			}
			list = append(list, NewStaticObject(label, g))
		}
		env.names = append(env.names, name)
		env.lists = append(env.lists, list)
	}
	return env, nil
}

// NewEmptyEnvironment returns an environment without obstacles.
func NewEmptyEnvironment() *Environment {
	return &Environment{}
}

// Names returns the list names in order.
func (env *Environment) Names() []string {
	return env.names
}

// NumObjects returns the total number of objects.
func (env *Environment) NumObjects() int {
	n := 0
	for _, list := range env.lists {
		n += len(list)
	}
	return n
}

// Object returns an object by list and position.
func (env *Environment) Object(list, idx int) (*Object, error) {
	if list < 0 || list >= len(env.lists) {
		return nil, NewIndexOutOfRangeError("environment list", list, len(env.lists))
	}
	if idx < 0 || idx >= len(env.lists[list]) {
		return nil, NewIndexOutOfRangeError("environment object", idx, len(env.lists[list]))
	}
	return env.lists[list][idx], nil
}

// SetListActive switches a whole named list on or off.
func (env *Environment) SetListActive(name string, active bool) error {
	for i, n := range env.names {
		if n == name {
			for _, o := range env.lists[i] {
				o.SetActive(active)
			}
			return nil
		}
	}
	return errors.Errorf("no environment list named %q", name)
}
