package utils

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ParallelFactor is the default number of groups used to split work across cores.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// GroupWorkFunc processes the work items [from, to) of one group.
type GroupWorkFunc func(ctx context.Context, groupNum, from, to int) error

// GroupWorkParallel splits totalSize items into numGroups contiguous ranges and runs each range on
// its own goroutine. The last group takes the remainder. The first error cancels the context seen by
// the other groups and is returned. A panic in a group is returned as an error.
func GroupWorkParallel(ctx context.Context, totalSize, numGroups int, groupWork GroupWorkFunc) error {
	if numGroups <= 0 {
		numGroups = ParallelFactor
	}
	if numGroups > totalSize {
		numGroups = MaxInt(totalSize, 1)
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	g, gctx := errgroup.WithContext(ctx)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("panic in work group %d: %v", groupNum, r)
				}
			}()
			return groupWork(gctx, groupNum, from, to)
		})
	}
	return g.Wait()
}
