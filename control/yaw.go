package control

import (
	"math"

	"github.com/samber/lo"
)

// minYawSpeed keeps the turning radius finite when the vehicle is nearly stopped.
const minYawSpeed = 0.1

// YawController converts a target yaw rate into a steering wheel angle with a kinematic
// bicycle model.
type YawController struct {
	WheelBase     float64
	SteerRatio    float64
	MaxLatAccel   float64
	MaxSteerAngle float64
}

func (y YawController) angle(radius float64) float64 {
	a := math.Atan(y.WheelBase/radius) * y.SteerRatio
	return lo.Clamp(a, -y.MaxSteerAngle, y.MaxSteerAngle)
}

// Steering returns the wheel angle that holds the target curvature at the current speed. The
// yaw rate is limited so lateral acceleration stays under MaxLatAccel.
func (y YawController) Steering(linear, angular, current float64) float64 {
	if math.Abs(linear) > 0 {
		angular = current * angular / linear
	} else {
		angular = 0
	}
	if math.Abs(current) > minYawSpeed {
		maxYawRate := math.Abs(y.MaxLatAccel / current)
		angular = lo.Clamp(angular, -maxYawRate, maxYawRate)
	}
	if math.Abs(angular) == 0 {
		return 0
	}
	return y.angle(math.Max(current, minYawSpeed) / angular)
}
