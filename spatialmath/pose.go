// Package spatialmath defines the planar pose and frame math used to track a vehicle against a path.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a position plus a heading (yaw, radians, counter-clockwise from +X).
type Pose struct {
	Position r3.Vector
	Heading  float64
}

// NewPose returns a pose at (x, y, 0) with the given heading.
func NewPose(x, y, heading float64) Pose {
	return Pose{Position: r3.Vector{X: x, Y: y}, Heading: heading}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f) yaw=%.3f", p.Position.X, p.Position.Y, p.Position.Z, p.Heading)
}

// HeadingFromQuaternion extracts the yaw (rotation about +Z) of a unit quaternion.
func HeadingFromQuaternion(q quat.Number) float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// PlanarHeading returns the heading encoded directly in the x/y components of an orientation,
// the convention used by the reference simulator. Only valid for that encoding.
func PlanarHeading(x, y float64) float64 {
	return math.Atan2(y, x)
}

// Distance2D is the Euclidean distance between a and b ignoring Z.
func Distance2D(a, b r3.Vector) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// NormalizeAngle wraps an angle in radians to (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// Distance3D is the Euclidean distance between a and b.
func Distance3D(a, b r3.Vector) float64 {
	return a.Sub(b).Norm()
}
