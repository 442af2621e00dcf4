package referenceframe

import "github.com/pkg/errors"

// ErrNoModelInformation is used when a model config is empty.
var ErrNoModelInformation = errors.New("no model information")

// NewIncorrectDoFError returns an error indicating that the length of the input does not match the
// degrees of freedom of the model.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}

// NewUnknownParentError is returned when a link references a parent that has not been declared.
func NewUnknownParentError(link, parent string) error {
	return errors.Errorf("link %q references unknown parent %q", link, parent)
}

// NewUnsupportedJointTypeError returns an error indicating that a given joint type is not supported.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type detected: %q", jointType)
}

// NewDuplicateLinkError is returned when two links share a name.
func NewDuplicateLinkError(link string) error {
	return errors.Errorf("duplicate link name %q", link)
}
