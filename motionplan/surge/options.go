package surge

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/motionplan"
)

const (
	defaultNumMilestones   = 20
	defaultMilestoneGrowth = 1.5
	defaultMaxMilestones   = 5000
	maxMilestoneAttempts   = 1000

	defaultMinPartialSpacing = 0.1
)

// ParallelMode selects how connection attempts are spread over workers.
type ParallelMode int

const (
	// ForceSingleThreaded attempts one connection at a time.
	ForceSingleThreaded ParallelMode = iota
	// Batched attempts NumThreads connections at once and integrates them together.
	Batched
	// Continuous keeps NumThreads workers busy, each taking a new candidate as soon as it finishes.
	Continuous
	// Independent runs NumThreads complete single threaded searches; the first success wins.
	Independent
)

var parallelModeNames = map[ParallelMode]string{
	ForceSingleThreaded: "force_single_threaded",
	Batched:             "batched",
	Continuous:          "continuous",
	Independent:         "independent",
}

func (m ParallelMode) String() string {
	if name, ok := parallelModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the mode by name.
func (m ParallelMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name.
func (m *ParallelMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for mode, name := range parallelModeNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	return errors.Errorf("unknown surge parallel mode %q", s)
}

// Options configure a SURGE planner.
type Options struct {
	// Milestones sampled at the start of a plan call.
	NumMilestones int `json:"num_milestones"`

	// Grow only the start DAG; milestones are targets of the start DAG alone.
	Unidirectional bool `json:"unidirectional"`

	Mode       ParallelMode `json:"parallel_mode"`
	NumThreads int          `json:"num_threads"`

	// Factor the milestone count grows by when no candidate connection is left.
	MilestoneGrowth float64 `json:"milestone_growth"`

	// Give up with "no candidate connections" beyond this many milestones.
	MaxMilestones int `json:"max_milestones"`

	// Add the endpoint of a partial local search to the anchor's DAG.
	IntegratePartialResults bool `json:"integrate_partial_results"`

	// A partial endpoint closer than this to any known point is not integrated. Planning calls set
	// it to the local step length.
	MinPartialSpacing float64 `json:"min_partial_spacing"`
}

// NewDefaultOptions returns bidirectional single threaded options.
func NewDefaultOptions() *Options {
	return &Options{
		NumMilestones:   defaultNumMilestones,
		Mode:            ForceSingleThreaded,
		NumThreads:      motionplan.DefaultNumThreads(),
		MilestoneGrowth: defaultMilestoneGrowth,
		MaxMilestones:   defaultMaxMilestones,

		MinPartialSpacing: defaultMinPartialSpacing,
	}
}

// Validate rejects unusable settings.
func (o *Options) Validate() error {
	if o.NumMilestones < 0 {
		return errors.New("num_milestones must not be negative")
	}
	if o.MilestoneGrowth <= 1 {
		return errors.Errorf("milestone_growth must exceed 1, got %v", o.MilestoneGrowth)
	}
	if o.MinPartialSpacing < 0 {
		return errors.New("min_partial_spacing must not be negative")
	}
	if o.NumThreads < 1 {
		return errors.New("num_threads must be at least 1")
	}
	if _, ok := parallelModeNames[o.Mode]; !ok {
		return errors.Errorf("unknown surge parallel mode %d", o.Mode)
	}
	return nil
}

func (o *Options) threads() int {
	if o.Mode == ForceSingleThreaded {
		return 1
	}
	return o.NumThreads
}
