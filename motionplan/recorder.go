package motionplan

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lynxrobotics/lynx/utils"
)

// EventKind classifies recorded planner actions.
type EventKind int

const (
	// CollisionPointAdded is a configuration found to be in collision.
	CollisionPointAdded EventKind = iota
	// EdgeAdded is a new collision free edge.
	EdgeAdded
)

func (k EventKind) String() string {
	switch k {
	case CollisionPointAdded:
		return "collision_point_added"
	case EdgeAdded:
		return "edge_added"
	}
	return "unknown"
}

// Event is one recorded planner action.
type Event struct {
	ID      uuid.UUID   `json:"id"`
	Kind    EventKind   `json:"kind"`
	Configs [][]float64 `json:"configs"`
	Time    time.Time   `json:"time"`
}

// Recorder receives planner actions. Planners accept a nil Recorder.
type Recorder interface {
	Record(Event)
}

// RecordCollisionPoint records a colliding configuration when rec is non-nil.
func RecordCollisionPoint(rec Recorder, q []float64) {
	if rec == nil {
		return
	}
	rec.Record(Event{ID: uuid.New(), Kind: CollisionPointAdded, Configs: [][]float64{utils.Clone(q)}, Time: time.Now()})
}

// RecordEdge records a free edge when rec is non-nil.
func RecordEdge(rec Recorder, from, to []float64) {
	if rec == nil {
		return
	}
	rec.Record(Event{ID: uuid.New(), Kind: EdgeAdded, Configs: [][]float64{utils.Clone(from), utils.Clone(to)}, Time: time.Now()})
}

// MemoryRecorder keeps every event in memory.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements Recorder.
func (r *MemoryRecorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *MemoryRecorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// Count returns the number of events of a kind.
func (r *MemoryRecorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
