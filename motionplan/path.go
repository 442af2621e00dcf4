package motionplan

import (
	"fmt"
	"math"
	"strings"

	"github.com/lynxrobotics/lynx/utils"
)

// waypointEpsilon decides whether two waypoints are the same configuration.
const waypointEpsilon = 1e-9

// LinearSplinePath is an ordered list of configurations joined by straight segments.
type LinearSplinePath struct {
	Waypoints [][]float64 `json:"waypoints"`
}

// NewLinearSplinePath copies the waypoints into a new path.
func NewLinearSplinePath(waypoints ...[]float64) *LinearSplinePath {
	p := &LinearSplinePath{Waypoints: make([][]float64, 0, len(waypoints))}
	for _, w := range waypoints {
		p.Waypoints = append(p.Waypoints, utils.Clone(w))
	}
	return p
}

// NewInterpolatedPath returns the straight path from a to b with consecutive waypoints at most step
// apart. A non-positive step yields just the endpoints.
func NewInterpolatedPath(a, b []float64, step float64) *LinearSplinePath {
	n := 1
	if step > 0 {
		if d := utils.L2Distance(a, b); d > step {
			n = int(math.Ceil(d / step))
		}
	}
	p := &LinearSplinePath{Waypoints: make([][]float64, 0, n+1)}
	for i := 0; i <= n; i++ {
		p.Waypoints = append(p.Waypoints, utils.Lerp(a, b, float64(i)/float64(n)))
	}
	return p
}

// Len returns the number of waypoints.
func (p *LinearSplinePath) Len() int {
	return len(p.Waypoints)
}

// Start returns the first waypoint.
func (p *LinearSplinePath) Start() []float64 {
	return p.Waypoints[0]
}

// End returns the last waypoint.
func (p *LinearSplinePath) End() []float64 {
	return p.Waypoints[len(p.Waypoints)-1]
}

// Length is the sum of segment lengths.
func (p *LinearSplinePath) Length() float64 {
	total := 0.
	for i := 1; i < len(p.Waypoints); i++ {
		total += utils.L2Distance(p.Waypoints[i-1], p.Waypoints[i])
	}
	return total
}

// Reverse returns a new path with the waypoints in reverse order.
func (p *LinearSplinePath) Reverse() *LinearSplinePath {
	out := &LinearSplinePath{Waypoints: make([][]float64, len(p.Waypoints))}
	for i, w := range p.Waypoints {
		out.Waypoints[len(p.Waypoints)-1-i] = utils.Clone(w)
	}
	return out
}

// CombineOrdered appends other to p. When other starts where p ends the shared endpoint appears once.
func (p *LinearSplinePath) CombineOrdered(other *LinearSplinePath) *LinearSplinePath {
	out := NewLinearSplinePath(p.Waypoints...)
	rest := other.Waypoints
	if len(out.Waypoints) > 0 && len(rest) > 0 && utils.VectorsAlmostEqual(out.End(), rest[0], waypointEpsilon) {
		rest = rest[1:]
	}
	for _, w := range rest {
		out.Waypoints = append(out.Waypoints, utils.Clone(w))
	}
	return out
}

func (p *LinearSplinePath) String() string {
	parts := make([]string, 0, len(p.Waypoints))
	for _, w := range p.Waypoints {
		parts = append(parts, fmt.Sprintf("%.4v", w))
	}
	return strings.Join(parts, " -> ")
}
