// Package waypoint holds the reference path a vehicle tracks and the store that owns it.
package waypoint

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/pathtracker/spatialmath"
)

// ErrPathEmpty is returned when an operation needs at least one waypoint.
var ErrPathEmpty = errors.New("path has no waypoints")

// Waypoint is a single point on the reference path. BaselineVelocity is the target speed the
// path was loaded with; Velocity is the effective target after speed profiling and never
// exceeds BaselineVelocity.
type Waypoint struct {
	Position         r3.Vector
	Heading          float64
	BaselineVelocity float64
	Velocity         float64
}

// New returns a waypoint at (x, y, z) whose effective velocity equals its baseline.
func New(x, y, z, heading, velocity float64) Waypoint {
	return Waypoint{
		Position:         r3.Vector{X: x, Y: y, Z: z},
		Heading:          heading,
		BaselineVelocity: velocity,
		Velocity:         velocity,
	}
}

// Restored returns a copy of w with its effective velocity reset to baseline.
func (w Waypoint) Restored() Waypoint {
	w.Velocity = w.BaselineVelocity
	return w
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f) v=%.2f/%.2f", w.Position.X, w.Position.Y, w.Velocity, w.BaselineVelocity)
}

// Path is an immutable, circular sequence of waypoints. Baseline velocities are snapshotted
// when the path is built.
type Path struct {
	waypoints []Waypoint
}

// NewPath copies wps into a new path. Each waypoint's baseline is taken from its Velocity.
func NewPath(wps []Waypoint) *Path {
	return &Path{waypoints: lo.Map(wps, func(w Waypoint, _ int) Waypoint {
		w.BaselineVelocity = w.Velocity
		return w
	})}
}

// Len is the number of waypoints. A nil path has length 0.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.waypoints)
}

// At returns a copy of the waypoint at i, wrapping modulo the path length.
func (p *Path) At(i int) Waypoint {
	return p.waypoints[p.Wrap(i)]
}

// Wrap maps any integer index onto [0, Len).
func (p *Path) Wrap(i int) int {
	n := len(p.waypoints)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// LastIndex is the index of the final waypoint, or -1 for an empty path.
func (p *Path) LastIndex() int {
	return p.Len() - 1
}

// FinalBaselineVelocity is the baseline velocity of the last waypoint.
func (p *Path) FinalBaselineVelocity() (float64, error) {
	if p.Len() == 0 {
		return 0, ErrPathEmpty
	}
	return p.waypoints[len(p.waypoints)-1].BaselineVelocity, nil
}

// Waypoints returns a copy of every waypoint.
func (p *Path) Waypoints() []Waypoint {
	if p == nil {
		return nil
	}
	out := make([]Waypoint, len(p.waypoints))
	copy(out, p.waypoints)
	return out
}

// SameWaypoint reports whether a and b are no more than maxDist apart.
func SameWaypoint(a, b Waypoint, maxDist float64) bool {
	return spatialmath.Distance3D(a.Position, b.Position) <= maxDist
}
