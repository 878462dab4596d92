package control

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

const tick = 20 * time.Millisecond

func TestPID(t *testing.T) {
	_, err := NewPID(PIDConfig{Max: 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPID(PIDConfig{Kp: 1, Min: 1, Max: 0})
	test.That(t, err, test.ShouldNotBeNil)

	t.Run("proportional", func(t *testing.T) {
		p, err := NewPID(PIDConfig{Kp: 2, Min: -10, Max: 10})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.Next(1.5, tick), test.ShouldAlmostEqual, 3)
		test.That(t, p.Next(-20, tick), test.ShouldEqual, -10)
	})

	t.Run("integral and reset", func(t *testing.T) {
		p, err := NewPID(PIDConfig{Ki: 1, Min: -10, Max: 10})
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < 50; i++ {
			p.Next(1, tick)
		}
		test.That(t, p.Next(0, tick), test.ShouldAlmostEqual, 1.0)
		p.Reset()
		test.That(t, p.Next(0, tick), test.ShouldEqual, 0)
	})

	t.Run("derivative skips first sample", func(t *testing.T) {
		p, err := NewPID(PIDConfig{Kd: 1, Min: -100, Max: 100})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, p.Next(1, tick), test.ShouldEqual, 0)
		test.That(t, p.Next(1.2, tick), test.ShouldAlmostEqual, 10)
		test.That(t, p.Next(1.2, 0), test.ShouldEqual, 0)
	})

	t.Run("no windup while saturated", func(t *testing.T) {
		p, err := NewPID(PIDConfig{Kp: 1, Ki: 1, Min: 0, Max: 0.2})
		test.That(t, err, test.ShouldBeNil)
		for i := 0; i < 500; i++ {
			test.That(t, p.Next(5, tick), test.ShouldEqual, 0.2)
		}
		// one saturated step was integrated before the clamp was seen
		out := p.Next(-0.1, tick)
		test.That(t, out, test.ShouldBeLessThan, 0.2)
	})
}

func TestLowPassFilter(t *testing.T) {
	_, err := NewLowPassFilter(0.5, 0)
	test.That(t, err, test.ShouldNotBeNil)

	f, err := NewLowPassFilter(0.5, 0.02)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Next(10), test.ShouldEqual, 10)
	next := f.Next(0)
	test.That(t, next, test.ShouldAlmostEqual, 10*25.0/26.0)
	test.That(t, f.Last(), test.ShouldEqual, next)
	f.Reset()
	test.That(t, f.Next(3), test.ShouldEqual, 3)

	pass, err := NewLowPassFilter(0, 0.02)
	test.That(t, err, test.ShouldBeNil)
	pass.Next(4)
	test.That(t, pass.Next(7), test.ShouldEqual, 7)
}

func TestYawController(t *testing.T) {
	y := YawController{WheelBase: 2.8498, SteerRatio: 14.8, MaxLatAccel: 3, MaxSteerAngle: 8}
	test.That(t, y.Steering(10, 0, 10), test.ShouldEqual, 0)
	test.That(t, y.Steering(0, 0.5, 10), test.ShouldEqual, 0)

	left := y.Steering(10, 0.1, 10)
	test.That(t, left, test.ShouldAlmostEqual, math.Atan(2.8498/100)*14.8)
	test.That(t, y.Steering(10, -0.1, 10), test.ShouldAlmostEqual, -left)

	// lateral acceleration limits the yaw rate to 3/20 at 20 m/s
	fast := y.Steering(20, 1, 20)
	test.That(t, fast, test.ShouldAlmostEqual, math.Atan(2.8498/(20/0.15))*14.8)

	test.That(t, y.Steering(1, 5, 1), test.ShouldEqual, 8)
}

func TestTwistController(t *testing.T) {
	cfg := DefaultTwistControllerConfig()
	bad := cfg
	bad.VehicleMass = 0
	_, err := NewTwistController(bad)
	test.That(t, err, test.ShouldNotBeNil)

	tc, err := NewTwistController(cfg)
	test.That(t, err, test.ShouldBeNil)

	t.Run("accelerate", func(t *testing.T) {
		tc.Reset()
		a := tc.Control(Input{TargetLinear: 10, CurrentLinear: 2, Elapsed: tick})
		test.That(t, a.Throttle, test.ShouldEqual, 0.2)
		test.That(t, a.Brake, test.ShouldEqual, 0)
		test.That(t, a.Steering, test.ShouldEqual, 0)
	})

	t.Run("hold at stop", func(t *testing.T) {
		tc.Reset()
		a := tc.Control(Input{TargetLinear: 0, CurrentLinear: 0, Elapsed: tick})
		test.That(t, a.Throttle, test.ShouldEqual, 0)
		test.That(t, a.Brake, test.ShouldEqual, HoldTorque)
	})

	t.Run("brake torque", func(t *testing.T) {
		tc.Reset()
		a := tc.Control(Input{TargetLinear: 8, CurrentLinear: 10, Elapsed: tick})
		test.That(t, a.Throttle, test.ShouldEqual, 0)
		test.That(t, a.Brake, test.ShouldAlmostEqual, 2*cfg.TotalMass()*cfg.WheelRadius)

		tc.Reset()
		a = tc.Control(Input{TargetLinear: 4, CurrentLinear: 20, Elapsed: tick})
		test.That(t, a.Brake, test.ShouldAlmostEqual, 5*cfg.TotalMass()*cfg.WheelRadius)

		tc.Reset()
		a = tc.Control(Input{TargetLinear: 9.95, CurrentLinear: 10, Elapsed: tick})
		test.That(t, a.Brake, test.ShouldEqual, 0)
	})

	t.Run("cross track correction steers back", func(t *testing.T) {
		tc.Reset()
		right := tc.Control(Input{TargetLinear: 10, CurrentLinear: 10, CrossTrackError: 1, Elapsed: tick})
		test.That(t, right.Steering, test.ShouldBeGreaterThan, 0)
		tc.Reset()
		left := tc.Control(Input{TargetLinear: 10, CurrentLinear: 10, CrossTrackError: -1, Elapsed: tick})
		test.That(t, left.Steering, test.ShouldAlmostEqual, -right.Steering)
	})
}
