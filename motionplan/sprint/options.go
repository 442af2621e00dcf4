package sprint

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/motionplan"
)

const (
	defaultKappa         = 0.45
	defaultMaxIterations = 1000
	maxNearbyObstacles   = 4
	maxFrontierRetries   = 2
)

// Mode selects the direction a search runs in.
type Mode int

const (
	// Forward searches from the initial configuration toward the goal.
	Forward Mode = iota
	// Reverse searches from the goal toward the initial configuration and reverses the result.
	Reverse
	// RandomDirection flips a coin between Forward and Reverse.
	RandomDirection
	// Parallel runs one RandomDirection search per worker; the first success wins.
	Parallel
)

var modeNames = map[Mode]string{
	Forward:         "forward",
	Reverse:         "reverse",
	RandomDirection: "random_direction",
	Parallel:        "parallel",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the mode by name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for mode, name := range modeNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	return errors.Errorf("unknown sprint mode %q", s)
}

// Options configure a SPRINT planner.
type Options struct {
	// Length of one extension step.
	StepLength float64 `json:"step_length"`

	// Threshold under which the worth-extending Gaussian abandons a frontier.
	Kappa float64 `json:"kappa"`

	// Iteration cap of one search.
	MaxIterations int `json:"max_iterations"`

	Mode Mode `json:"mode"`

	// Workers used in Parallel mode.
	NumThreads int `json:"num_threads"`

	// On failure, return the path to the node closest to the goal.
	ReturnPartial bool `json:"return_partial"`

	// Mark checkpoints abandoned by the worth-extending test as dead and never return to them.
	PruneDeadCheckpoints bool `json:"prune_dead_checkpoints"`
}

// NewDefaultOptions returns forward-mode options with the shared planner defaults.
func NewDefaultOptions() *Options {
	base := motionplan.NewBasicPlannerOptions()
	return &Options{
		StepLength:    base.StepLength,
		Kappa:         defaultKappa,
		MaxIterations: defaultMaxIterations,
		Mode:          Forward,
		NumThreads:    base.NumThreads,
	}
}

// NewOptionsFromPlannerOptions takes the step, thread count and partial flag from shared options.
func NewOptionsFromPlannerOptions(p *motionplan.PlannerOptions) *Options {
	opt := NewDefaultOptions()
	opt.StepLength = p.StepLength
	opt.NumThreads = p.NumThreads
	opt.ReturnPartial = p.ReturnPartialPlan
	return opt
}

// Validate rejects unusable settings.
func (o *Options) Validate() error {
	if o.StepLength <= 0 {
		return errors.New("sprint step_length must be positive")
	}
	if o.Kappa <= 0 || o.Kappa >= 1 {
		return errors.Errorf("sprint kappa must be in (0, 1), got %v", o.Kappa)
	}
	if o.MaxIterations < 1 {
		return errors.New("sprint max_iterations must be at least 1")
	}
	if _, ok := modeNames[o.Mode]; !ok {
		return errors.Errorf("unknown sprint mode %d", o.Mode)
	}
	return nil
}
