package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Frame2D is a planar frame anchored at Origin whose forward axis points along Bearing.
// Points expressed in it are (forward, lateral).
type Frame2D struct {
	Origin  r3.Vector
	Bearing float64
	cos     float64
	sin     float64
}

// NewFrame2D builds the frame that maps the given bearing onto the forward axis.
func NewFrame2D(origin r3.Vector, bearing float64) Frame2D {
	return Frame2D{Origin: origin, Bearing: bearing, cos: math.Cos(bearing), sin: math.Sin(bearing)}
}

// FrameToward builds a frame at origin whose forward axis points at target.
func FrameToward(origin, target r3.Vector) Frame2D {
	return NewFrame2D(origin, math.Atan2(target.Y-origin.Y, target.X-origin.X))
}

// Apply translates p by -Origin and rotates it by -Bearing.
func (f Frame2D) Apply(p r3.Vector) (forward, lateral float64) {
	dx, dy := p.X-f.Origin.X, p.Y-f.Origin.Y
	return dx*f.cos + dy*f.sin, -dx*f.sin + dy*f.cos
}

// Inverse maps frame coordinates back into the world.
func (f Frame2D) Inverse(forward, lateral float64) r3.Vector {
	return r3.Vector{
		X: f.Origin.X + forward*f.cos - lateral*f.sin,
		Y: f.Origin.Y + forward*f.sin + lateral*f.cos,
		Z: f.Origin.Z,
	}
}
