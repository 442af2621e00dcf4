package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

func newBadGeometryDimensionsError(kind string, dims r3.Vector) error {
	return errors.Errorf("invalid dimensions for %s: %v", kind, dims)
}

func newEmptyHullError(label string) error {
	return errors.Errorf("convex hull %q has no triangles", label)
}

func newSTLParseError(path string, err error) error {
	return errors.Wrapf(err, "cannot parse stl %q", path)
}
