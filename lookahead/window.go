// Package lookahead builds the fixed-size forward slice of the path the vehicle drives toward.
package lookahead

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/pathtracker/waypoint"
)

// DefaultSize is the number of waypoints in a window.
const DefaultSize = 100

// Entry is a copy of one path waypoint tagged with its absolute path index.
type Entry struct {
	Index int
	waypoint.Waypoint
}

// Window is an ordered run of path waypoints starting at the localized index. Once published
// (Seq assigned) it is never mutated.
type Window struct {
	Seq     uint64
	Stamp   time.Time
	Entries []Entry
}

// Build copies size waypoints starting at start, wrapping modulo the path length. Every copy
// carries its baseline velocity as the effective velocity.
func Build(path *waypoint.Path, start, size int) (*Window, error) {
	if path.Len() == 0 {
		return nil, waypoint.ErrPathEmpty
	}
	if size <= 0 {
		return nil, errors.Errorf("window size must be positive, got %d", size)
	}
	start = path.Wrap(start)
	return &Window{
		Entries: lo.Times(size, func(k int) Entry {
			idx := path.Wrap(start + k)
			return Entry{Index: idx, Waypoint: path.At(idx).Restored()}
		}),
	}, nil
}

// Len is the number of entries.
func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Entries)
}

// Start is the absolute path index of the first entry.
func (w *Window) Start() (int, bool) {
	if w.Len() == 0 {
		return 0, false
	}
	return w.Entries[0].Index, true
}

// OffsetOf returns the window position of the first entry with the given path index.
func (w *Window) OffsetOf(pathIndex int) (int, bool) {
	_, offset, ok := lo.FindIndexOf(w.Entries, func(e Entry) bool { return e.Index == pathIndex })
	return offset, ok
}

// Positions returns the position of every entry in order.
func (w *Window) Positions() []r3.Vector {
	return lo.Map(w.Entries, func(e Entry, _ int) r3.Vector { return e.Position })
}

// Velocities returns the effective velocity of every entry in order.
func (w *Window) Velocities() []float64 {
	return lo.Map(w.Entries, func(e Entry, _ int) float64 { return e.Velocity })
}

// Clone returns a deep copy.
func (w *Window) Clone() *Window {
	if w == nil {
		return nil
	}
	out := *w
	out.Entries = make([]Entry, len(w.Entries))
	copy(out.Entries, w.Entries)
	return &out
}

// ArcLength sums the straight-line segment lengths between entries from and to inclusive.
func (w *Window) ArcLength(from, to int) float64 {
	var dist float64
	for i := from + 1; i <= to && i < len(w.Entries); i++ {
		dist += w.Entries[i].Position.Sub(w.Entries[i-1].Position).Norm()
	}
	return dist
}
