package collision

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// GeometryLevel selects which representation of the links a query uses.
type GeometryLevel int

const (
	// OBB is one oriented box per link.
	OBB GeometryLevel = iota
	// ConvexHull is one convex hull per link.
	ConvexHull
	// OBBSubcomponents is one box around each convex subcomponent of a link.
	OBBSubcomponents
	// ConvexHullSubcomponents is the convex decomposition of each link.
	ConvexHullSubcomponents
)

const numGeometryLevels = 4

// AllGeometryLevels lists every level in order.
var AllGeometryLevels = [numGeometryLevels]GeometryLevel{OBB, ConvexHull, OBBSubcomponents, ConvexHullSubcomponents}

var geometryLevelNames = [numGeometryLevels]string{"obb", "convex_hull", "obb_subcomponents", "convex_hull_subcomponents"}

func (l GeometryLevel) String() string {
	if l < 0 || int(l) >= numGeometryLevels {
		return "unknown"
	}
	return geometryLevelNames[l]
}

func (l GeometryLevel) valid() bool {
	return l >= 0 && int(l) < numGeometryLevels
}

// GeometryLevelFromString parses the file name form of a level.
func GeometryLevelFromString(s string) (GeometryLevel, error) {
	for i, name := range geometryLevelNames {
		if name == s {
			return GeometryLevel(i), nil
		}
	}
	return 0, errors.Errorf("unknown geometry level %q", s)
}

// MarshalJSON encodes the level as its name.
func (l GeometryLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name.
func (l *GeometryLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := GeometryLevelFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// SelfCollisionMode decides which pairs of a group are never checked against each other.
type SelfCollisionMode int

const (
	// SameObjectOnly skips an object against itself.
	SameObjectOnly SelfCollisionMode = iota
	// SameObjectOrSameVector also skips every pair of subcomponents of the same link.
	SameObjectOrSameVector
	// NoSelfCollisions skips nothing; used between different groups.
	NoSelfCollisions
)

var selfCollisionModeNames = [...]string{"SameObjectOnly", "SameObjectOrSameVector", "NoSelfCollisions"}

func (m SelfCollisionMode) String() string {
	if m < 0 || int(m) >= len(selfCollisionModeNames) {
		return "unknown"
	}
	return selfCollisionModeNames[m]
}

// MarshalJSON encodes the mode by name.
func (m SelfCollisionMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name.
func (m *SelfCollisionMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range selfCollisionModeNames {
		if name == s {
			*m = SelfCollisionMode(i)
			return nil
		}
	}
	return errors.Errorf("unknown self collision mode %q", s)
}
