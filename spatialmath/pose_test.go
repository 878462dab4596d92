package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestHeadingFromQuaternion(t *testing.T) {
	for _, yaw := range []float64{0, math.Pi / 4, math.Pi / 2, -math.Pi / 3, 3} {
		q := quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
		test.That(t, HeadingFromQuaternion(q), test.ShouldAlmostEqual, yaw)
	}
	// a pure roll has no yaw
	roll := quat.Number{Real: math.Cos(0.4), Imag: math.Sin(0.4)}
	test.That(t, HeadingFromQuaternion(roll), test.ShouldAlmostEqual, 0)
}

func TestPlanarHeading(t *testing.T) {
	test.That(t, PlanarHeading(0, 1), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, PlanarHeading(-1, 0), test.ShouldAlmostEqual, math.Pi)
}

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(3*math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-math.Pi/2-2*math.Pi), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(0.25), test.ShouldAlmostEqual, 0.25)
}

func TestFrame2D(t *testing.T) {
	origin := r3.Vector{X: 10, Y: 5}
	f := FrameToward(origin, r3.Vector{X: 10, Y: 15})
	test.That(t, f.Bearing, test.ShouldAlmostEqual, math.Pi/2)

	fwd, lat := f.Apply(r3.Vector{X: 10, Y: 8})
	test.That(t, fwd, test.ShouldAlmostEqual, 3)
	test.That(t, lat, test.ShouldAlmostEqual, 0)

	// left of the direction of travel is positive lateral
	fwd, lat = f.Apply(r3.Vector{X: 8, Y: 5})
	test.That(t, fwd, test.ShouldAlmostEqual, 0)
	test.That(t, lat, test.ShouldAlmostEqual, 2)

	back := f.Inverse(fwd, lat)
	test.That(t, back.X, test.ShouldAlmostEqual, 8)
	test.That(t, back.Y, test.ShouldAlmostEqual, 5)
	test.That(t, Distance2D(origin, back), test.ShouldAlmostEqual, 2)
}
