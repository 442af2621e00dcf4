package motionplan

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/collision"
	"github.com/lynxrobotics/lynx/utils"
)

// default values for planning options.
const (
	// Length of one local planner step in configuration space.
	defaultStepLength = 0.1

	// Spacing of collision checks along an edge.
	defaultResolution = 0.02

	// default number of seconds to try to solve in total before returning.
	defaultTimeout = 300.

	// random seed.
	defaultRandomSeed = 0
)

var defaultNumThreads = utils.MaxInt(utils.MinInt(runtime.NumCPU()/2, 10), 1)

func init() {
	defaultNumThreads = utils.GetenvInt("MP_NUM_THREADS", defaultNumThreads)
}

// DefaultNumThreads returns the worker count used when none is configured.
func DefaultNumThreads() int {
	return defaultNumThreads
}

// PlannerOptions are the settings shared by every planner of a plan call.
type PlannerOptions struct {
	// Number of workers for parallel modes.
	NumThreads int `json:"num_threads"`

	// Length of one local planner step.
	StepLength float64 `json:"step_length"`

	// Check collisions every this much configuration space distance along an edge.
	Resolution float64 `json:"resolution"`

	// Number of seconds before terminating the planner.
	Timeout float64 `json:"timeout"`

	// The random seed used during planning.
	RandomSeed int `json:"rseed"`

	// Link representation used for collision checks.
	GeometryLevel collision.GeometryLevel `json:"geometry_level"`

	// If no complete path is found, return the path to the node closest to the goal.
	ReturnPartialPlan bool `json:"return_partial_plan"`
}

// NewBasicPlannerOptions returns the default options.
func NewBasicPlannerOptions() *PlannerOptions {
	return &PlannerOptions{
		NumThreads:    defaultNumThreads,
		StepLength:    defaultStepLength,
		Resolution:    defaultResolution,
		Timeout:       defaultTimeout,
		RandomSeed:    defaultRandomSeed,
		GeometryLevel: collision.OBB,
	}
}

// NewPlannerOptionsFromExtra returns the defaults overridden by the fields present in extra.
func NewPlannerOptionsFromExtra(extra map[string]interface{}) (*PlannerOptions, error) {
	opt := NewBasicPlannerOptions()
	jsonString, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(jsonString, opt); err != nil {
		return nil, err
	}
	return opt, opt.Validate()
}

// Validate rejects unusable settings.
func (p *PlannerOptions) Validate() error {
	if p.StepLength <= 0 {
		return errors.New("step_length must be positive")
	}
	if p.Resolution <= 0 {
		return errors.New("resolution must be positive")
	}
	if p.NumThreads < 1 {
		return errors.New("num_threads must be at least 1")
	}
	return nil
}

// TimeoutDuration returns the timeout as a duration.
func (p *PlannerOptions) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout * float64(time.Second))
}
