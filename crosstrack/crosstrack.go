// Package crosstrack estimates the signed lateral deviation of the vehicle from the path ahead.
package crosstrack

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/spatialmath"
)

const (
	// MinSamples is the fewest window points the estimator will fit.
	MinSamples = 16
	// AheadOffset is the window offset of the point that fixes the path-aligned frame.
	AheadOffset = 15
	// Degree of the fitted curve.
	Degree = 3
)

// Estimate fits a cubic through points in the frame anchored at points[0] and facing
// points[AheadOffset], then returns f(forward) - lateral for position in that frame. A positive
// error means the vehicle is to the right of the path.
func Estimate(points []r3.Vector, position r3.Vector) (float64, error) {
	if len(points) < MinSamples {
		return 0, errors.Wrapf(ErrIllConditionedFit, "%d points, need at least %d", len(points), MinSamples)
	}
	origin, ahead := points[0], points[AheadOffset]
	if spatialmath.Distance2D(origin, ahead) < 1e-9 {
		return 0, errors.Wrap(ErrIllConditionedFit, "ahead reference coincides with the window start")
	}
	frame := spatialmath.FrameToward(origin, ahead)

	forward := make([]float64, len(points))
	lateral := make([]float64, len(points))
	for i, p := range points {
		forward[i], lateral[i] = frame.Apply(p)
	}
	poly, err := FitPolynomial(forward, lateral, Degree)
	if err != nil {
		return 0, err
	}

	f0, l0 := frame.Apply(position)
	return poly.Eval(f0) - l0, nil
}

// EstimateWindow is Estimate over the positions of a published window.
func EstimateWindow(w *lookahead.Window, position r3.Vector) (float64, error) {
	if w == nil {
		return 0, errors.Wrap(ErrIllConditionedFit, "no window")
	}
	return Estimate(w.Positions(), position)
}
