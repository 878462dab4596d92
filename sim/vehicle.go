// Package sim is a kinematic bicycle vehicle that closes the loop between actuation commands and
// the pose and speed the tracker consumes.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"go.viam.com/pathtracker/control"
	"go.viam.com/pathtracker/coordinator"
	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/spatialmath"
)

const (
	// ThrottleAccel is the acceleration in m/s^2 produced by full throttle.
	ThrottleAccel = 5.0
	// pursuitOffset is how far into the window the steering target is taken.
	pursuitOffset = 5
)

// Vehicle integrates the latest actuation command. It is safe for concurrent use.
type Vehicle struct {
	mu      sync.Mutex
	cfg     control.TwistControllerConfig
	pose    spatialmath.Pose
	speed   float64
	command control.Actuation
}

// NewVehicle places a stopped vehicle at start.
func NewVehicle(start spatialmath.Pose, cfg control.TwistControllerConfig) *Vehicle {
	return &Vehicle{cfg: cfg, pose: start}
}

// PublishActuation latches the command applied by subsequent steps.
func (v *Vehicle) PublishActuation(ctx context.Context, in control.Input, out control.Actuation) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.command = out
	return nil
}

// Step advances the vehicle by dt and returns the new pose and speed.
func (v *Vehicle) Step(dt time.Duration) (spatialmath.Pose, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := dt.Seconds()
	accel := v.command.Throttle * ThrottleAccel
	if v.command.Brake > 0 {
		accel -= v.command.Brake / (v.cfg.TotalMass() * v.cfg.WheelRadius)
	}
	accel = lo.Clamp(accel, v.cfg.DecelLimit*2, v.cfg.AccelLimit*ThrottleAccel)
	v.speed = math.Max(0, v.speed+accel*s)

	wheel := v.command.Steering / v.cfg.SteerRatio
	yawRate := v.speed * math.Tan(wheel) / v.cfg.WheelBase
	v.pose.Heading = spatialmath.NormalizeAngle(v.pose.Heading + yawRate*s)
	v.pose.Position = v.pose.Position.Add(r3.Vector{
		X: v.speed * math.Cos(v.pose.Heading) * s,
		Y: v.speed * math.Sin(v.pose.Heading) * s,
	})
	return v.pose, v.speed
}

// State returns the current pose and speed without advancing.
func (v *Vehicle) State() (spatialmath.Pose, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose, v.speed
}

// TargetTwist derives the target twist from a window: the speed of the first entry, and a pure
// pursuit yaw rate toward an entry a few waypoints ahead.
func TargetTwist(w *lookahead.Window, pose spatialmath.Pose) (coordinator.Twist, bool) {
	if w.Len() == 0 {
		return coordinator.Twist{}, false
	}
	linear := w.Entries[0].Velocity
	target := w.Entries[min(pursuitOffset, w.Len()-1)].Position
	dist := spatialmath.Distance2D(pose.Position, target)
	if dist < 1e-6 {
		return coordinator.Twist{Linear: linear}, true
	}
	alpha := spatialmath.NormalizeAngle(math.Atan2(target.Y-pose.Position.Y, target.X-pose.Position.X) - pose.Heading)
	return coordinator.Twist{Linear: linear, Angular: 2 * linear * math.Sin(alpha) / dist}, true
}
