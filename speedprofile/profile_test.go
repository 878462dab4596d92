package speedprofile

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/waypoint"
)

func linePath(n int, spacing, velocity float64) *waypoint.Path {
	wps := make([]waypoint.Waypoint, n)
	for i := range wps {
		wps[i] = waypoint.New(float64(i)*spacing, 0, 0, 0, velocity)
	}
	return waypoint.NewPath(wps)
}

func build(t *testing.T, p *waypoint.Path, start, size int) *lookahead.Window {
	t.Helper()
	w, err := lookahead.Build(p, start, size)
	test.That(t, err, test.ShouldBeNil)
	return w
}

func TestFourWaypointScenario(t *testing.T) {
	p := linePath(4, 1, 5)
	inj := Injector{Decel: 2, Standoff: 1, StopOnRed: true, ForceStopAtPathEnd: true}

	w := build(t, p, 0, 4)
	rep := inj.Apply(w, waypoint.IndexOf(2), p)
	test.That(t, rep.UpstreamStop, test.ShouldBeTrue)
	test.That(t, rep.UpstreamOffset, test.ShouldEqual, 2)
	test.That(t, rep.EndStop, test.ShouldBeTrue)
	test.That(t, rep.EndOffset, test.ShouldEqual, 3)

	vel := w.Velocities()
	test.That(t, vel[0], test.ShouldAlmostEqual, 2.0)
	test.That(t, vel[1], test.ShouldEqual, 0.0)
	test.That(t, vel[2], test.ShouldEqual, 0.0)
	test.That(t, vel[3], test.ShouldEqual, 5.0)
}

func TestUpstreamStopOnly(t *testing.T) {
	p := linePath(4, 1, 5)
	inj := Injector{Decel: 2, Standoff: 1, StopOnRed: true}

	w := build(t, p, 0, 4)
	rep := inj.Apply(w, waypoint.IndexOf(2), p)
	test.That(t, rep.EndStop, test.ShouldBeFalse)
	test.That(t, w.Velocities(), test.ShouldResemble, []float64{2, 0, 5, 5})

	t.Run("stop on red disabled", func(t *testing.T) {
		w := build(t, p, 0, 4)
		inj := inj
		inj.StopOnRed = false
		rep := inj.Apply(w, waypoint.IndexOf(2), p)
		test.That(t, rep.UpstreamStop, test.ShouldBeFalse)
		test.That(t, w.Velocities(), test.ShouldResemble, []float64{5, 5, 5, 5})
	})
}

func TestStopOutsideWindow(t *testing.T) {
	p := linePath(200, 1, 10)
	inj := Injector{Decel: 1, Standoff: 5, StopOnRed: true, ForceStopAtPathEnd: true}
	w := build(t, p, 0, 50)

	rep := inj.Apply(w, waypoint.IndexOf(120), p)
	test.That(t, rep.UpstreamStop, test.ShouldBeFalse)
	test.That(t, rep.EndStop, test.ShouldBeFalse)
	for _, v := range w.Velocities() {
		test.That(t, v, test.ShouldEqual, 10)
	}

	rep = inj.Apply(w, waypoint.NoIndex, p)
	test.That(t, rep, test.ShouldResemble, Report{})
}

func TestStopAtWindowStart(t *testing.T) {
	p := linePath(20, 1, 10)
	inj := Injector{Decel: 1, Standoff: 5, StopOnRed: true}
	w := build(t, p, 7, 10)
	rep := inj.Apply(w, waypoint.IndexOf(7), p)
	test.That(t, rep.UpstreamStop, test.ShouldBeTrue)
	test.That(t, rep.UpstreamOffset, test.ShouldEqual, 0)
	for _, v := range w.Velocities() {
		test.That(t, v, test.ShouldEqual, 10)
	}
}

func TestProfileShape(t *testing.T) {
	const (
		spacing  = 2.0
		standoff = 5.0
		decel    = 1.0
		stop     = 60
	)
	p := linePath(300, spacing, 15)
	inj := Injector{Decel: decel, Standoff: standoff, StopOnRed: true}
	w := build(t, p, 0, 100)
	inj.Apply(w, waypoint.IndexOf(stop), p)

	for k, e := range w.Entries {
		test.That(t, e.Velocity, test.ShouldBeLessThanOrEqualTo, e.BaselineVelocity)
		if k >= stop {
			test.That(t, e.Velocity, test.ShouldEqual, e.BaselineVelocity)
			continue
		}
		d := float64(stop-k) * spacing
		want := 0.0
		if d > standoff {
			want = math.Min(math.Sqrt(2*decel*(d-standoff)), e.BaselineVelocity)
		}
		test.That(t, e.Velocity, test.ShouldAlmostEqual, want)
	}

	// speed rises strictly moving away from the line until it is capped by baseline
	for k := stop - 3; k > 0; k-- {
		prev, cur := w.Entries[k].Velocity, w.Entries[k-1].Velocity
		if cur == w.Entries[k-1].BaselineVelocity {
			break
		}
		test.That(t, cur, test.ShouldBeGreaterThan, prev)
	}
	test.That(t, w.Entries[stop-2].Velocity, test.ShouldEqual, 0)
	test.That(t, w.Entries[stop-3].Velocity, test.ShouldBeGreaterThan, 0)
}

func TestExactStandoffIsZero(t *testing.T) {
	p := linePath(30, 1, 8)
	inj := Injector{Decel: 3, Standoff: 4, StopOnRed: true}
	w := build(t, p, 0, 30)
	inj.Apply(w, waypoint.IndexOf(20), p)
	test.That(t, w.Entries[16].Velocity, test.ShouldEqual, 0)
	test.That(t, w.Entries[15].Velocity, test.ShouldAlmostEqual, math.Sqrt(2*3*1))
}

func TestIdempotent(t *testing.T) {
	p := linePath(150, 1.5, 12)
	inj := Injector{Decel: 2.5, Standoff: 5, StopOnRed: true, ForceStopAtPathEnd: true}

	first := build(t, p, 80, 100)
	inj.Apply(first, waypoint.IndexOf(120), p)
	second := build(t, p, 80, 100)
	inj.Apply(second, waypoint.IndexOf(120), p)
	test.That(t, second.Velocities(), test.ShouldResemble, first.Velocities())

	// profiling an already profiled window changes nothing either
	again := first.Clone()
	inj.Apply(again, waypoint.IndexOf(120), p)
	test.That(t, again.Velocities(), test.ShouldResemble, first.Velocities())
}

func TestNeverExceedsBaseline(t *testing.T) {
	wps := make([]waypoint.Waypoint, 40)
	for i := range wps {
		wps[i] = waypoint.New(float64(i), math.Sin(float64(i)/5), 0, 0, float64(i%7))
	}
	p := waypoint.NewPath(wps)
	for _, force := range []bool{false, true} {
		for _, stop := range []waypoint.OptionalIndex{waypoint.NoIndex, waypoint.IndexOf(3), waypoint.IndexOf(25), waypoint.IndexOf(39)} {
			inj := Injector{Decel: 4, Standoff: 2, StopOnRed: true, ForceStopAtPathEnd: force}
			w := build(t, p, 10, 40)
			inj.Apply(w, stop, p)
			for _, e := range w.Entries {
				test.That(t, e.Velocity, test.ShouldBeLessThanOrEqualTo, e.BaselineVelocity)
				test.That(t, e.Velocity, test.ShouldBeGreaterThanOrEqualTo, 0)
			}
		}
	}
}

func TestEndOfPathByZeroVelocity(t *testing.T) {
	wps := make([]waypoint.Waypoint, 10)
	for i := range wps {
		wps[i] = waypoint.New(float64(i), 0, 0, 0, 6)
	}
	wps[9].Velocity = 0
	p := waypoint.NewPath(wps)
	inj := Injector{Decel: 1, Standoff: 2}
	w := build(t, p, 0, 10)
	rep := inj.Apply(w, waypoint.NoIndex, p)
	test.That(t, rep.EndStop, test.ShouldBeTrue)
	test.That(t, rep.EndOffset, test.ShouldEqual, 9)
	test.That(t, w.Entries[7].Velocity, test.ShouldEqual, 0)
	test.That(t, w.Entries[6].Velocity, test.ShouldAlmostEqual, math.Sqrt2)
}
