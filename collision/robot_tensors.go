package collision

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/logging"
)

// minAverageDistance bounds the normalization denominator away from zero.
const minAverageDistance = 1e-3

// DefaultSelfCollisionMode is used for robots without a saved skip tensor.
const DefaultSelfCollisionMode = SameObjectOrSameVector

// RobotTensors holds the skip and average distance tensors of one robot at every level. Reads take
// the read lock; manual edits and reverts take the write lock and flush to the store.
type RobotTensors struct {
	mu        sync.RWMutex
	robot     string
	store     TensorStore
	shapes    [numGeometryLevels][]int
	skip      [numGeometryLevels]*SkipTensor
	permanent [numGeometryLevels]*SkipTensor
	avg       [numGeometryLevels]*AverageTensor
}

// LoadRobotTensors reads the tensors of a robot from the store. Missing skip tensors are created from
// the default self collision mode and missing average tensors start empty. A saved tensor whose
// dimensions do not fit the robot is an ArgumentError.
func LoadRobotTensors(robot string, shapes [numGeometryLevels][]int, store TensorStore, logger logging.Logger) (*RobotTensors, error) {
	rt := &RobotTensors{robot: robot, store: store, shapes: shapes}
	for _, level := range AllGeometryLevels {
		want := tensorDims(shapes[level], shapes[level])

		live, err := store.LoadSkip(robot, level, false)
		switch {
		case errors.Is(err, ErrTensorNotFound):
			logger.Debugf("no %s skip tensor for %s, using %s", level, robot, DefaultSelfCollisionMode)
			live = NewSkipTensor(shapes[level], shapes[level], DefaultSelfCollisionMode)
		case err != nil:
			return nil, err
		case live.Dims() != want:
			return nil, NewInconsistentTensorError(live.Dims(), want)
		}
		rt.skip[level] = live

		perm, err := store.LoadSkip(robot, level, true)
		switch {
		case errors.Is(err, ErrTensorNotFound):
			perm = live.Clone()
		case err != nil:
			return nil, err
		case perm.Dims() != want:
			return nil, NewInconsistentTensorError(perm.Dims(), want)
		}
		rt.permanent[level] = perm

		avg, err := store.LoadAverage(robot, level)
		switch {
		case errors.Is(err, ErrTensorNotFound):
			avg = NewAverageTensor(shapes[level], shapes[level], live.Mode)
		case err != nil:
			return nil, err
		case avg.Dims() != want:
			return nil, NewInconsistentTensorError(avg.Dims(), want)
		}
		rt.avg[level] = avg
	}
	return rt, nil
}

// Robot returns the robot name.
func (rt *RobotTensors) Robot() string {
	return rt.robot
}

// ShouldSkip reports whether the live skip tensor excludes a pair.
func (rt *RobotTensors) ShouldSkip(level GeometryLevel, q IndexQuad) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.skip[level].ShouldSkip(q)
}

// Mean returns the clamped average distance of a pair.
func (rt *RobotTensors) Mean(level GeometryLevel, q IndexQuad) float64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m := rt.avg[level].Mean(q)
	if m < minAverageDistance {
		return minAverageDistance
	}
	return m
}

// SkipTensor returns a copy of the live skip tensor.
func (rt *RobotTensors) SkipTensor(level GeometryLevel) *SkipTensor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.skip[level].Clone()
}

// AverageTensor returns a copy of the average distance tensor.
func (rt *RobotTensors) AverageTensor(level GeometryLevel) *AverageTensor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.avg[level].Clone()
}

// AddManualSkip excludes a pair from future checks and flushes the live tensor.
func (rt *RobotTensors) AddManualSkip(level GeometryLevel, q IndexQuad) error {
	return rt.editSkip(level, q, true)
}

// RemoveManualSkip re-enables a pair and flushes the live tensor.
func (rt *RobotTensors) RemoveManualSkip(level GeometryLevel, q IndexQuad) error {
	return rt.editSkip(level, q, false)
}

func (rt *RobotTensors) editSkip(level GeometryLevel, q IndexQuad, skip bool) error {
	if !level.valid() {
		return &ArgumentError{"invalid geometry level"}
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if err := rt.skip[level].SetSymmetric(q, skip); err != nil {
		return err
	}
	return rt.store.SaveSkip(rt.robot, level, false, rt.skip[level])
}

// Revert restores the live skip tensor from the permanent copy and flushes it.
func (rt *RobotTensors) Revert(level GeometryLevel) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.skip[level] = rt.permanent[level].Clone()
	return rt.store.SaveSkip(rt.robot, level, false, rt.skip[level])
}

// replaceSkip installs a trained skip tensor. The permanent copy is written only when the store has
// none yet.
func (rt *RobotTensors) replaceSkip(level GeometryLevel, st *SkipTensor) error {
	want := tensorDims(rt.shapes[level], rt.shapes[level])
	if st.Dims() != want {
		return NewInconsistentTensorError(st.Dims(), want)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.skip[level] = st
	if err := rt.store.SaveSkip(rt.robot, level, false, st); err != nil {
		return err
	}
	if _, err := rt.store.LoadSkip(rt.robot, level, true); !errors.Is(err, ErrTensorNotFound) {
		return err
	}
	rt.permanent[level] = st.Clone()
	return rt.store.SaveSkip(rt.robot, level, true, st)
}

func (rt *RobotTensors) replaceAverage(level GeometryLevel, at *AverageTensor) error {
	want := tensorDims(rt.shapes[level], rt.shapes[level])
	if at.Dims() != want {
		return NewInconsistentTensorError(at.Dims(), want)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.avg[level] = at
	return rt.store.SaveAverage(rt.robot, level, at)
}

// TensorCache loads each robot's tensors once per process and hands out the shared instance.
type TensorCache struct {
	mu      sync.Mutex
	store   TensorStore
	logger  logging.Logger
	entries map[string]*RobotTensors
}

// NewTensorCache returns a cache over the given store.
func NewTensorCache(store TensorStore, logger logging.Logger) *TensorCache {
	return &TensorCache{store: store, logger: logger, entries: map[string]*RobotTensors{}}
}

// Get returns the tensors of a robot, loading them on first use.
func (tc *TensorCache) Get(robot string, shapes [numGeometryLevels][]int) (*RobotTensors, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if rt, ok := tc.entries[robot]; ok {
		return rt, nil
	}
	rt, err := LoadRobotTensors(robot, shapes, tc.store, tc.logger)
	if err != nil {
		return nil, err
	}
	tc.entries[robot] = rt
	return rt, nil
}

// Store returns the backing store.
func (tc *TensorCache) Store() TensorStore {
	return tc.store
}
