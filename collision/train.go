package collision

import (
	"context"
	"math/rand"
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/lynxrobotics/lynx/logging"
	"github.com/lynxrobotics/lynx/referenceframe"
	"github.com/lynxrobotics/lynx/utils"
)

// TrainingOptions controls skip and average distance tensor training.
type TrainingOptions struct {
	// NumSamples is the number of uniformly sampled configurations.
	NumSamples int `json:"num_samples"`
	// NumWorkers splits the samples over this many goroutines, each with a cloned module.
	NumWorkers int `json:"num_workers"`
	// Pairs colliding in at least this fraction of samples are skipped.
	AlwaysCollidingRatio float64 `json:"always_colliding_ratio"`
	// Pairs colliding in at most this fraction of samples are skipped.
	NeverCollidingRatio float64 `json:"never_colliding_ratio"`
	Seed                int64   `json:"seed"`
}

// NewDefaultTrainingOptions returns the default training settings.
func NewDefaultTrainingOptions() *TrainingOptions {
	return &TrainingOptions{
		NumSamples:           10000,
		NumWorkers:           utils.ParallelFactor,
		AlwaysCollidingRatio: 0.99,
		NeverCollidingRatio:  0.0,
		Seed:                 1,
	}
}

// TrainingReport summarizes a skip tensor training run.
type TrainingReport struct {
	Level           GeometryLevel `json:"level"`
	Samples         int           `json:"samples"`
	Pairs           int           `json:"pairs"`
	AlwaysColliding int           `json:"always_colliding"`
	NeverColliding  int           `json:"never_colliding"`
	Checked         int           `json:"checked"`
	MeanRatio       float64       `json:"mean_ratio"`
	MedianRatio     float64       `json:"median_ratio"`
	P90Ratio        float64       `json:"p90_ratio"`
}

// sampleWork runs fn on a cloned module posed at every sample of one worker's range.
func sampleWork(
	ctx context.Context,
	m *RobotModule,
	model referenceframe.Model,
	opts *TrainingOptions,
	fn func(clone *RobotModule, groupNum int) error,
	merge func(groupNum int),
) error {
	if model.NumLinks() != m.NumLinks() {
		return NewDimensionMismatchError("model links", model.NumLinks(), m.NumLinks())
	}
	return utils.GroupWorkParallel(ctx, opts.NumSamples, opts.NumWorkers, func(ctx context.Context, groupNum, from, to int) error {
		clone := m.Clone()
		//nolint:gosec
		rng := rand.New(rand.NewSource(opts.Seed + int64(groupNum)))
		for s := from; s < to; s++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fk, err := model.ComputeFK(referenceframe.RandomInputs(model.DoF(), rng))
			if err != nil {
				return err
			}
			if err := clone.SetPosesOnLinks(fk); err != nil {
				return err
			}
			if err := fn(clone, groupNum); err != nil {
				return err
			}
		}
		merge(groupNum)
		return nil
	})
}

func modeSkip(m *RobotModule, level GeometryLevel) *SkipTensor {
	mode := DefaultSelfCollisionMode
	if m.tensors != nil {
		mode = m.tensors.SkipTensor(level).Mode
	}
	shape := m.Shape(level)
	return NewSkipTensor(shape, shape, mode)
}

// TrainSkipTensor samples the model's configuration space and skips every pair that collides in at
// least AlwaysCollidingRatio or at most NeverCollidingRatio of the samples, on top of the self
// collision mode. The result is installed in the module's tensors when it has any.
func TrainSkipTensor(
	ctx context.Context,
	m *RobotModule,
	model referenceframe.Model,
	level GeometryLevel,
	opts *TrainingOptions,
	logger logging.Logger,
) (*SkipTensor, *TrainingReport, error) {
	if !level.valid() {
		return nil, nil, &ArgumentError{"invalid geometry level"}
	}
	if opts.NumSamples <= 0 {
		return nil, nil, errors.New("training needs at least one sample")
	}
	base := modeSkip(m, level)
	shape := m.Shape(level)
	d := base.Dims()
	total := NewTensor4D[float64](d[0], d[1], d[2], d[3])
	counts := make([]*Tensor4D[float64], utils.MaxInt(opts.NumWorkers, utils.ParallelFactor))
	var mu sync.Mutex

	err := sampleWork(ctx, m, model, opts, func(clone *RobotModule, groupNum int) error {
		if counts[groupNum] == nil {
			counts[groupNum] = NewTensor4D[float64](d[0], d[1], d[2], d[3])
		}
		np := newNarrowPhase(intersectQuery, false, 0)
		if err := clone.selfPairs(level, 0, base.ShouldSkip, np.visit); err != nil {
			return err
		}
		for _, p := range np.intersect.Pairs {
			off, err := counts[groupNum].offset(p.Index.Quad)
			if err != nil {
				return err
			}
			counts[groupNum].data[off]++
		}
		return nil
	}, func(groupNum int) {
		mu.Lock()
		defer mu.Unlock()
		if counts[groupNum] == nil {
			return
		}
		for i, v := range counts[groupNum].data {
			total.data[i] += v
		}
	})
	if err != nil {
		return nil, nil, err
	}

	trained := base.Clone()
	report := &TrainingReport{Level: level, Samples: opts.NumSamples}
	var ratios []float64
	forEachUpperPair(shape, func(q IndexQuad) {
		if base.ShouldSkip(q) {
			return
		}
		//nolint:errcheck
		hits, _ := total.Get(q)
		ratio := hits / float64(opts.NumSamples)
		ratios = append(ratios, ratio)
		report.Pairs++
		switch {
		case ratio >= opts.AlwaysCollidingRatio:
			report.AlwaysColliding++
			//nolint:errcheck
			trained.SetSymmetric(q, true)
		case ratio <= opts.NeverCollidingRatio:
			report.NeverColliding++
			//nolint:errcheck
			trained.SetSymmetric(q, true)
		default:
			report.Checked++
		}
	})
	if len(ratios) > 0 {
		//nolint:errcheck
		report.MeanRatio, _ = stats.Mean(ratios)
		//nolint:errcheck
		report.MedianRatio, _ = stats.Median(ratios)
		//nolint:errcheck
		report.P90Ratio, _ = stats.Percentile(ratios, 90)
	}
	logger.Infof("trained %s skip tensor for %s from %d samples: %d pairs, %d always colliding, %d never colliding, %d checked",
		level, m.Name(), opts.NumSamples, report.Pairs, report.AlwaysColliding, report.NeverColliding, report.Checked)

	if m.tensors != nil {
		if err := m.tensors.replaceSkip(level, trained); err != nil {
			return nil, nil, err
		}
	}
	return trained, report, nil
}

// TrainAverageDistanceTensor accumulates the distance of every pair not excluded by the self
// collision mode over uniformly sampled configurations.
func TrainAverageDistanceTensor(
	ctx context.Context,
	m *RobotModule,
	model referenceframe.Model,
	level GeometryLevel,
	opts *TrainingOptions,
	logger logging.Logger,
) (*AverageTensor, error) {
	if !level.valid() {
		return nil, &ArgumentError{"invalid geometry level"}
	}
	if opts.NumSamples <= 0 {
		return nil, errors.New("training needs at least one sample")
	}
	base := modeSkip(m, level)
	shape := m.Shape(level)
	total := NewAverageTensor(shape, shape, base.Mode)
	partial := make([]*AverageTensor, utils.MaxInt(opts.NumWorkers, utils.ParallelFactor))
	var mu sync.Mutex
	var mergeErr error

	err := sampleWork(ctx, m, model, opts, func(clone *RobotModule, groupNum int) error {
		if partial[groupNum] == nil {
			partial[groupNum] = NewAverageTensor(shape, shape, base.Mode)
		}
		np := newNarrowPhase(distanceQuery, false, 0)
		if err := clone.selfPairs(level, 0, base.ShouldSkip, np.visit); err != nil {
			return err
		}
		for _, e := range np.distance.Entries {
			if err := partial[groupNum].Accumulate(e.Index.Quad, e.Distance); err != nil {
				return err
			}
		}
		partial[groupNum].TotalNumCollisionChecks++
		return nil
	}, func(groupNum int) {
		mu.Lock()
		defer mu.Unlock()
		if partial[groupNum] == nil {
			return
		}
		if err := total.Merge(partial[groupNum]); err != nil && mergeErr == nil {
			mergeErr = err
		}
	})
	if err != nil {
		return nil, err
	}
	if mergeErr != nil {
		return nil, mergeErr
	}
	logger.Infof("trained %s average distance tensor for %s from %v samples", level, m.Name(), total.TotalNumCollisionChecks)

	if m.tensors != nil {
		if err := m.tensors.replaceAverage(level, total); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// forEachUpperPair visits each unordered pair of distinct objects of a shape once, in the order used
// by self queries.
func forEachUpperPair(shape []int, fn func(IndexQuad)) {
	for i := range shape {
		for j := 0; j < shape[i]; j++ {
			for k := i; k < len(shape); k++ {
				l0 := 0
				if k == i {
					l0 = j + 1
				}
				for l := l0; l < shape[k]; l++ {
					fn(NewIndexQuad(i, j, k, l))
				}
			}
		}
	}
}
