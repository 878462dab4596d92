// Package control turns target and measured vehicle motion into throttle, brake and steering
// commands.
package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	// GasDensity is the mass of a gallon of gasoline in kilograms.
	GasDensity = 2.858
	// HoldTorque is the brake torque in N*m applied to keep a stopped vehicle from creeping.
	HoldTorque = 700.0
	// standstill is the speed below which the vehicle is treated as stopped.
	standstill = 0.1
	// coastThrottle is the throttle under which a negative speed error becomes braking.
	coastThrottle = 0.1
)

// Input is one sample handed to the control law.
type Input struct {
	TargetLinear    float64
	TargetAngular   float64
	CurrentLinear   float64
	CrossTrackError float64
	Elapsed         time.Duration
}

// Actuation is one set of drive-by-wire commands. Throttle is in [0, 1], Brake is a torque in
// N*m and Steering is a wheel angle in radians.
type Actuation struct {
	Throttle float64
	Brake    float64
	Steering float64
}

// TwistControllerConfig describes the vehicle and the gains of the control law.
type TwistControllerConfig struct {
	VehicleMass   float64 `mapstructure:"vehicle_mass"`
	FuelCapacity  float64 `mapstructure:"fuel_capacity"`
	BrakeDeadband float64 `mapstructure:"brake_deadband"`
	DecelLimit    float64 `mapstructure:"decel_limit"`
	AccelLimit    float64 `mapstructure:"accel_limit"`
	WheelRadius   float64 `mapstructure:"wheel_radius"`
	WheelBase     float64 `mapstructure:"wheel_base"`
	SteerRatio    float64 `mapstructure:"steer_ratio"`
	MaxLatAccel   float64 `mapstructure:"max_lat_accel"`
	MaxSteerAngle float64 `mapstructure:"max_steer_angle"`

	Throttle PIDConfig `mapstructure:"throttle"`
	Steer    PIDConfig `mapstructure:"steer"`
	// VelocityTau is the low pass time constant applied to measured speed.
	VelocityTau float64 `mapstructure:"velocity_tau"`
	// SamplePeriod is the nominal control period in seconds.
	SamplePeriod float64 `mapstructure:"sample_period"`
}

// DefaultTwistControllerConfig returns the parameters of the reference vehicle.
func DefaultTwistControllerConfig() TwistControllerConfig {
	return TwistControllerConfig{
		VehicleMass:   1736.35,
		FuelCapacity:  13.5,
		BrakeDeadband: 0.1,
		DecelLimit:    -5,
		AccelLimit:    1,
		WheelRadius:   0.2413,
		WheelBase:     2.8498,
		SteerRatio:    14.8,
		MaxLatAccel:   3,
		MaxSteerAngle: 8,
		Throttle:      PIDConfig{Kp: 0.3, Ki: 0.1, Kd: 0, Min: 0, Max: 0.2},
		Steer:         PIDConfig{Kp: 0.15, Ki: 0.001, Kd: 0.1, Min: -8, Max: 8},
		VelocityTau:   0.5,
		SamplePeriod:  0.02,
	}
}

// Validate checks the physical parameters.
func (cfg *TwistControllerConfig) Validate(path string) error {
	if cfg.VehicleMass <= 0 {
		return errors.Errorf("%s.vehicle_mass must be positive", path)
	}
	if cfg.WheelRadius <= 0 {
		return errors.Errorf("%s.wheel_radius must be positive", path)
	}
	if cfg.WheelBase <= 0 {
		return errors.Errorf("%s.wheel_base must be positive", path)
	}
	if cfg.DecelLimit > 0 {
		return errors.Errorf("%s.decel_limit must not be positive", path)
	}
	if cfg.MaxSteerAngle <= 0 {
		return errors.Errorf("%s.max_steer_angle must be positive", path)
	}
	if err := cfg.Throttle.Validate(path + ".throttle"); err != nil {
		return err
	}
	return cfg.Steer.Validate(path + ".steer")
}

// TotalMass is the vehicle mass with a full tank.
func (cfg *TwistControllerConfig) TotalMass() float64 {
	return cfg.VehicleMass + cfg.FuelCapacity*GasDensity
}

// TwistController is the reference control law: a throttle PID on filtered speed error, brake
// torque from the required deceleration, and yaw feedforward steering corrected by a PID on
// cross-track error.
type TwistController struct {
	mu       sync.Mutex
	cfg      TwistControllerConfig
	throttle *PID
	steer    *PID
	velocity *LowPassFilter
	yaw      YawController
}

// NewTwistController validates cfg and builds the controller.
func NewTwistController(cfg TwistControllerConfig) (*TwistController, error) {
	if err := cfg.Validate("controller"); err != nil {
		return nil, err
	}
	throttle, err := NewPID(cfg.Throttle)
	if err != nil {
		return nil, errors.Wrap(err, "throttle")
	}
	steer, err := NewPID(cfg.Steer)
	if err != nil {
		return nil, errors.Wrap(err, "steer")
	}
	velocity, err := NewLowPassFilter(cfg.VelocityTau, cfg.SamplePeriod)
	if err != nil {
		return nil, err
	}
	return &TwistController{
		cfg:      cfg,
		throttle: throttle,
		steer:    steer,
		velocity: velocity,
		yaw: YawController{
			WheelBase:     cfg.WheelBase,
			SteerRatio:    cfg.SteerRatio,
			MaxLatAccel:   cfg.MaxLatAccel,
			MaxSteerAngle: cfg.MaxSteerAngle,
		},
	}, nil
}

// Control computes one actuation sample.
func (tc *TwistController) Control(in Input) Actuation {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	vel := tc.velocity.Next(in.CurrentLinear)
	velErr := in.TargetLinear - vel

	var out Actuation
	out.Steering = tc.yaw.Steering(in.TargetLinear, in.TargetAngular, vel) + tc.steer.Next(in.CrossTrackError, in.Elapsed)
	out.Steering = lo.Clamp(out.Steering, -tc.cfg.MaxSteerAngle, tc.cfg.MaxSteerAngle)
	out.Throttle = tc.throttle.Next(velErr, in.Elapsed)

	switch {
	case in.TargetLinear == 0 && vel < standstill:
		out.Throttle = 0
		out.Brake = HoldTorque
	case out.Throttle < coastThrottle && velErr < 0:
		out.Throttle = 0
		decel := math.Abs(math.Max(velErr, tc.cfg.DecelLimit))
		if decel >= tc.cfg.BrakeDeadband {
			out.Brake = decel * tc.cfg.TotalMass() * tc.cfg.WheelRadius
		}
	}
	return out
}

// Reset clears the integrators and the speed filter. Called whenever drive-by-wire is disabled
// or the vehicle is at a standstill so no windup carries over.
func (tc *TwistController) Reset() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.throttle.Reset()
	tc.steer.Reset()
	tc.velocity.Reset()
}
