package motionplan

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/atomic"
)

// Counter names kept by planners.
const (
	CounterCollisionChecks = "collision_checks"
	CounterSegmentChecks   = "segment_checks"
	CounterLocalSearches   = "local_searches"
	CounterSprintIters     = "sprint_iterations"
	CounterMilestones      = "milestones"
	CounterPartialsDropped = "partials_dropped"
)

// InvocationCounters counts invocations of an operation and the time spent in it.
type InvocationCounters struct {
	calls     atomic.Int64
	timeNanos atomic.Int64
}

// Calls returns the number of invocations.
func (ic *InvocationCounters) Calls() int64 {
	if ic == nil {
		return 0
	}
	return ic.calls.Load()
}

// Time returns the accumulated duration.
func (ic *InvocationCounters) Time() time.Duration {
	if ic == nil {
		return 0
	}
	return time.Duration(ic.timeNanos.Load())
}

func (ic *InvocationCounters) String() string {
	return fmt.Sprintf("calls: %d time: %v", ic.Calls(), ic.Time())
}

// PlanMeta collects timing and counters of one plan call. It is safe for concurrent use.
type PlanMeta struct {
	Duration time.Duration
	Partial  bool

	mu       sync.Mutex
	timing   map[string]*InvocationCounters
	counters map[string]*atomic.Int64
}

// NewPlanMeta returns empty metadata.
func NewPlanMeta() *PlanMeta {
	return &PlanMeta{
		timing:   map[string]*InvocationCounters{},
		counters: map[string]*atomic.Int64{},
	}
}

// DeferTiming records the time since start for an operation. Expected usage at the top of a function:
//
//	defer meta.DeferTiming("solveLocal", time.Now())
func (pm *PlanMeta) DeferTiming(opName string, start time.Time) {
	pm.AddTiming(opName, time.Since(start))
}

// AddTiming records one invocation of an operation.
func (pm *PlanMeta) AddTiming(opName string, dur time.Duration) {
	pm.mu.Lock()
	ic, ok := pm.timing[opName]
	if !ok {
		ic = &InvocationCounters{}
		pm.timing[opName] = ic
	}
	pm.mu.Unlock()
	ic.calls.Inc()
	ic.timeNanos.Add(dur.Nanoseconds())
}

// Timing returns the counters of an operation, nil if it never ran.
func (pm *PlanMeta) Timing(opName string) *InvocationCounters {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.timing[opName]
}

// Count increments a named counter.
func (pm *PlanMeta) Count(name string) {
	pm.mu.Lock()
	c, ok := pm.counters[name]
	if !ok {
		c = atomic.NewInt64(0)
		pm.counters[name] = c
	}
	pm.mu.Unlock()
	c.Inc()
}

// Counter returns the value of a named counter.
func (pm *PlanMeta) Counter(name string) int64 {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if c, ok := pm.counters[name]; ok {
		return c.Load()
	}
	return 0
}

// OutputTiming writes the timings and counters as a table.
func (pm *PlanMeta) OutputTiming(w io.Writer) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"operation", "calls", "time"})
	names := make([]string, 0, len(pm.timing))
	for name := range pm.timing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tw.AppendRow(table.Row{name, pm.timing[name].Calls(), pm.timing[name].Time()})
	}
	tw.AppendSeparator()
	names = names[:0]
	for name := range pm.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tw.AppendRow(table.Row{name, pm.counters[name].Load(), ""})
	}
	tw.AppendFooter(table.Row{"total", "", pm.Duration})
	tw.Render()
}
