package referenceframe

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/lynxrobotics/lynx/spatialmath"
)

// ModelConfig represents all supported fields in a kinematics JSON file.
type ModelConfig struct {
	Name           string       `json:"name" mapstructure:"name"`
	Links          []LinkConfig `json:"links" mapstructure:"links"`
	DisabledChains []string     `json:"disabled_chains,omitempty" mapstructure:"disabled_chains"`
}

// LinkConfig describes one link: where its joint sits relative to the parent link, how the joint
// moves, and the box geometry attached to it.
type LinkConfig struct {
	Name          string          `json:"name" mapstructure:"name"`
	Parent        string          `json:"parent,omitempty" mapstructure:"parent"`
	Translation   r3.Vector       `json:"translation" mapstructure:"translation"`
	RotationAxis  r3.Vector       `json:"rotation_axis,omitempty" mapstructure:"rotation_axis"`
	RotationAngle float64         `json:"rotation_angle,omitempty" mapstructure:"rotation_angle"`
	Joint         *JointConfig    `json:"joint,omitempty" mapstructure:"joint"`
	Geometry      *GeometryConfig `json:"geometry,omitempty" mapstructure:"geometry"`
	Chain         string          `json:"chain,omitempty" mapstructure:"chain"`
}

// JointConfig describes a single degree of freedom.
type JointConfig struct {
	Type string    `json:"type" mapstructure:"type"`
	Axis r3.Vector `json:"axis" mapstructure:"axis"`
	Min  float64   `json:"min" mapstructure:"min"`
	Max  float64   `json:"max" mapstructure:"max"`
}

// GeometryConfig is a box in the frame of its link.
type GeometryConfig struct {
	Dims        r3.Vector `json:"dims" mapstructure:"dims"`
	Translation r3.Vector `json:"translation" mapstructure:"translation"`
}

// UnmarshalModelJSON parses JSON kinematics into a model. An empty modelName keeps the name from
// the file.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*SimpleModel, error) {
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfig{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	return cfg.ParseConfig(modelName)
}

// UnmarshalModelJSON5 parses hand-written kinematics that may carry comments, unquoted keys and
// trailing commas.
func UnmarshalModelJSON5(data []byte, modelName string) (*SimpleModel, error) {
	if len(data) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfig{}
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json5 file")
	}
	return cfg.ParseConfig(modelName)
}

// ParseModelJSONFile reads a kinematics file from disk. Files ending in .json5 are read as JSON5.
func ParseModelJSONFile(filename, modelName string) (*SimpleModel, error) {
	//nolint:gosec
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	if strings.EqualFold(filepath.Ext(filename), ".json5") {
		return UnmarshalModelJSON5(raw, modelName)
	}
	return UnmarshalModelJSON(raw, modelName)
}

// ModelConfigFromMap decodes a loosely typed attribute map, such as one read from a YAML problem
// file, into a ModelConfig. Vector fields accept {x, y, z} maps since field matching ignores case.
func ModelConfigFromMap(attrs map[string]interface{}) (*ModelConfig, error) {
	cfg := &ModelConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "failed to decode model config")
	}
	return cfg, nil
}

// ParseConfig converts the config into a model named modelName, or the config name when empty.
func (cfg *ModelConfig) ParseConfig(modelName string) (*SimpleModel, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	if len(cfg.Links) == 0 {
		return nil, ErrNoModelInformation
	}
	disabled := map[string]bool{}
	for _, c := range cfg.DisabledChains {
		disabled[c] = true
	}

	model := &SimpleModel{name: modelName, config: cfg}
	index := map[string]int{}
	pending := append([]LinkConfig{}, cfg.Links...)
	for len(pending) > 0 {
		progressed := false
		rest := pending[:0]
		for _, lc := range pending {
			parentIdx := -1
			if lc.Parent != "" {
				idx, ok := index[lc.Parent]
				if !ok {
					rest = append(rest, lc)
					continue
				}
				parentIdx = idx
			}
			if _, ok := index[lc.Name]; ok {
				return nil, NewDuplicateLinkError(lc.Name)
			}
			l, err := model.parseLink(lc, parentIdx, disabled[lc.Chain])
			if err != nil {
				return nil, err
			}
			index[lc.Name] = len(model.links)
			model.links = append(model.links, l)
			progressed = true
		}
		pending = rest
		if !progressed {
			return nil, NewUnknownParentError(pending[0].Name, pending[0].Parent)
		}
	}
	return model, nil
}

func (m *SimpleModel) parseLink(lc LinkConfig, parent int, disabled bool) (link, error) {
	l := link{
		name:     lc.Name,
		parent:   parent,
		origin:   spatialmath.NewPoseFromAxisAngle(lc.Translation, lc.RotationAxis, lc.RotationAngle),
		dofIdx:   -1,
		disabled: disabled,
	}
	if lc.Joint != nil {
		switch lc.Joint.Type {
		case "revolute":
			l.joint = revoluteJoint
		case "prismatic":
			l.joint = prismaticJoint
		case "fixed", "":
			l.joint = fixedJoint
		default:
			return link{}, NewUnsupportedJointTypeError(lc.Joint.Type)
		}
		if l.joint != fixedJoint {
			if lc.Joint.Axis.Norm2() == 0 {
				return link{}, errors.Errorf("joint of link %q has a zero axis", lc.Name)
			}
			l.axis = lc.Joint.Axis.Normalize()
			l.dofIdx = len(m.limits)
			m.limits = append(m.limits, Limit{Min: lc.Joint.Min, Max: lc.Joint.Max})
		}
	}
	if lc.Geometry != nil {
		g, err := spatialmath.NewBox(spatialmath.NewPoseFromPoint(lc.Geometry.Translation), lc.Geometry.Dims, lc.Name)
		if err != nil {
			return link{}, err
		}
		l.geometry = g
	}
	return l, nil
}
