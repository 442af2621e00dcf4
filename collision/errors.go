package collision

import (
	"fmt"

	"github.com/pkg/errors"
)

// ArgumentError reports an out of range index, a dimension mismatch or inconsistent tensor shapes.
type ArgumentError struct {
	msg string
}

func (e *ArgumentError) Error() string {
	return "argument error: " + e.msg
}

// StaleCacheError is returned when an object's bounding volumes were not refreshed after its pose
// changed. It always means a missing SetPosesOnLinks call and is not recoverable.
type StaleCacheError struct {
	Object string
}

func (e *StaleCacheError) Error() string {
	return fmt.Sprintf("stale bounding volume cache on %q: poses were set without refreshing", e.Object)
}

// NewStaleCacheError returns a StaleCacheError for the named object.
func NewStaleCacheError(object string) error {
	return &StaleCacheError{Object: object}
}

// NewIndexOutOfRangeError reports a tensor or object index outside its dimension.
func NewIndexOutOfRangeError(what string, idx, size int) error {
	return &ArgumentError{fmt.Sprintf("%s index %d out of range [0, %d)", what, idx, size)}
}

// NewDimensionMismatchError reports an input whose length does not match what is expected.
func NewDimensionMismatchError(what string, got, want int) error {
	return &ArgumentError{fmt.Sprintf("%s has %d entries, expected %d", what, got, want)}
}

// NewInconsistentTensorError reports tensors that cannot be combined or do not fit a robot.
func NewInconsistentTensorError(got, want [4]int) error {
	return &ArgumentError{fmt.Sprintf("inconsistent tensor dimensions %v, expected %v", got, want)}
}

// ErrTensorNotFound is returned by a TensorStore that has nothing saved for the requested key.
var ErrTensorNotFound = errors.New("tensor not found")

// IsArgumentError reports whether err wraps an ArgumentError.
func IsArgumentError(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}

// IsStaleCacheError reports whether err wraps a StaleCacheError.
func IsStaleCacheError(err error) bool {
	var target *StaleCacheError
	return errors.As(err, &target)
}
