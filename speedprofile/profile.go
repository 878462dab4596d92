// Package speedprofile lowers lookahead window velocities so the vehicle comes to rest before a
// stop line.
package speedprofile

import (
	"math"

	"go.viam.com/pathtracker/lookahead"
	"go.viam.com/pathtracker/waypoint"
)

const (
	// DefaultStandoff is the distance before a stop line at which speed must reach zero.
	DefaultStandoff = 5.0
	// DefaultDecel is the braking deceleration magnitude used when none is configured.
	DefaultDecel = 1.0
	// stoppedVelocity is the baseline speed below which a final waypoint is treated as a stop.
	stoppedVelocity = 1e-5
)

// Decelerate caps the velocity of every entry before stopOffset with v = sqrt(2*decel*(d-standoff)),
// where d is the distance still to travel to the stop line, and zero inside the standoff.
// Velocities are only ever lowered. Entries at or after stopOffset are not touched. The arc
// length from the window start to the stop line is spread evenly over the entries before it.
// A stopOffset of zero or less means the vehicle is already at the line and nothing changes.
func Decelerate(entries []lookahead.Entry, stopOffset int, standoff, decel float64) {
	if stopOffset <= 0 || stopOffset >= len(entries) {
		return
	}
	w := lookahead.Window{Entries: entries}
	step := w.ArcLength(0, stopOffset) / float64(stopOffset)
	decel = math.Abs(decel)

	var d float64
	for idx := stopOffset - 1; idx >= 0; idx-- {
		d += step
		var vel float64
		if d > standoff {
			vel = math.Sqrt(2 * decel * (d - standoff))
		}
		if vel < entries[idx].Velocity {
			entries[idx].Velocity = vel
		}
	}
}

// Injector applies the upstream stop request and the end-of-path stop to a window.
type Injector struct {
	// Decel is the braking deceleration magnitude.
	Decel float64
	// Standoff is the distance before a stop line at which speed reaches zero.
	Standoff float64
	// StopOnRed enables the upstream stop trigger.
	StopOnRed bool
	// ForceStopAtPathEnd makes the final path waypoint a stop line even when its baseline
	// velocity is non-zero.
	ForceStopAtPathEnd bool
}

// Report says which stop lines fell inside the window and where.
type Report struct {
	UpstreamStop   bool
	UpstreamOffset int
	EndStop        bool
	EndOffset      int
}

// Apply profiles w in place. A stop line outside the window is skipped. Both triggers may fire,
// each only ever lowering velocities, so the result is the minimum of the two profiles.
func (inj Injector) Apply(w *lookahead.Window, stop waypoint.OptionalIndex, path *waypoint.Path) Report {
	var rep Report
	if w.Len() == 0 {
		return rep
	}
	if idx, ok := stop.Get(); ok && inj.StopOnRed {
		if offset, found := w.OffsetOf(idx); found {
			rep.UpstreamStop, rep.UpstreamOffset = true, offset
			Decelerate(w.Entries, offset, inj.Standoff, inj.Decel)
		}
	}
	if inj.stopsAtEnd(path) {
		if offset, found := w.OffsetOf(path.LastIndex()); found {
			rep.EndStop, rep.EndOffset = true, offset
			Decelerate(w.Entries, offset, inj.Standoff, inj.Decel)
		}
	}
	return rep
}

func (inj Injector) stopsAtEnd(path *waypoint.Path) bool {
	if inj.ForceStopAtPathEnd {
		return path.Len() > 0
	}
	final, err := path.FinalBaselineVelocity()
	return err == nil && final < stoppedVelocity
}
