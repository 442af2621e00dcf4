package motionplan

// ResultKind is the outcome of a planner call.
type ResultKind int

const (
	// SolutionFound carries a complete path from init to goal.
	SolutionFound ResultKind = iota
	// SolutionNotFoundButPartial carries a path from init that stops short of the goal.
	SolutionNotFoundButPartial
	// SolutionNotFound carries only a reason.
	SolutionNotFound
)

func (k ResultKind) String() string {
	switch k {
	case SolutionFound:
		return "SolutionFound"
	case SolutionNotFoundButPartial:
		return "SolutionNotFoundButPartial"
	case SolutionNotFound:
		return "SolutionNotFound"
	}
	return "unknown"
}

// PathPlannerResult is returned by every planner.
type PathPlannerResult struct {
	Kind   ResultKind        `json:"kind"`
	Path   *LinearSplinePath `json:"path,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// Found wraps a complete path.
func Found(path *LinearSplinePath) PathPlannerResult {
	return PathPlannerResult{Kind: SolutionFound, Path: path}
}

// Partial wraps a path that does not reach the goal.
func Partial(path *LinearSplinePath) PathPlannerResult {
	return PathPlannerResult{Kind: SolutionNotFoundButPartial, Path: path}
}

// NotFound reports a failure with its reason.
func NotFound(reason string) PathPlannerResult {
	return PathPlannerResult{Kind: SolutionNotFound, Reason: reason}
}

// Success reports whether a complete path was found.
func (r PathPlannerResult) Success() bool {
	return r.Kind == SolutionFound
}

// Reversed returns the result with its path reversed. Failures are returned unchanged.
func (r PathPlannerResult) Reversed() PathPlannerResult {
	if r.Path == nil {
		return r
	}
	return PathPlannerResult{Kind: r.Kind, Path: r.Path.Reverse(), Reason: r.Reason}
}
