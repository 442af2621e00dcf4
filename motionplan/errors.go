package motionplan

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reasons carried by SolutionNotFound results.
const (
	ReasonInitInCollision = "q_init in collision"
	ReasonGoalInCollision = "q_goal in collision"
	ReasonStackEmpty      = "n_stack empty"
	ReasonMaxIterations   = "max iterations reached"
	ReasonEarlyTerminate  = "early terminate"
	ReasonNoCandidates    = "no candidate connections"
)

// InternalInvariantError reports bookkeeping that disagrees with itself. It is never recoverable.
type InternalInvariantError struct {
	msg string
}

func (e *InternalInvariantError) Error() string {
	return "internal invariant violated: " + e.msg
}

// NewInternalInvariantError formats an InternalInvariantError.
func NewInternalInvariantError(format string, args ...interface{}) error {
	return &InternalInvariantError{msg: fmt.Sprintf(format, args...)}
}

// IsInternalInvariantError reports whether err wraps an InternalInvariantError.
func IsInternalInvariantError(err error) bool {
	var target *InternalInvariantError
	return errors.As(err, &target)
}

// NewUnknownNodeError is returned for a DAG node id that does not exist.
func NewUnknownNodeError(id NodeID, size int) error {
	return errors.Errorf("unknown dag node %d, dag has %d nodes", id, size)
}

// NewDimensionMismatchError is returned when two configurations differ in length.
func NewDimensionMismatchError(got, want int) error {
	return errors.Errorf("configuration has %d values, expected %d", got, want)
}

// NewPlannerFailedError is returned when a planner could not produce any result.
func NewPlannerFailedError(reason string) error {
	return errors.Errorf("motion planner failed to find path: %s", reason)
}
