// Package localizer tracks which waypoint of a circular path the vehicle is nearest to.
package localizer

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"go.viam.com/pathtracker/spatialmath"
	"go.viam.com/pathtracker/waypoint"
)

// DefaultSearchThreshold bounds how far away a local minimum may be and still be trusted.
const DefaultSearchThreshold = 20.0

// Result is the outcome of a nearest-waypoint search.
type Result struct {
	Index    int
	Distance float64
	// Exhaustive is true when every waypoint was examined, either because there was no
	// previous index or because the local walk fell back.
	Exhaustive bool
}

// Search finds the waypoint nearest to position. Without a previous index every waypoint is
// examined. With one, the path is walked forward from it and the walk stops at the first local
// minimum closer than threshold; a minimum at or beyond threshold turns the walk into a full
// circle. Ties go to the first index reached.
func Search(path *waypoint.Path, position r3.Vector, prev waypoint.OptionalIndex, threshold float64) (Result, error) {
	n := path.Len()
	if n == 0 {
		return Result{}, waypoint.ErrPathEmpty
	}

	offset, local := prev.Get()
	if !local {
		offset = 0
	}
	offset = path.Wrap(offset)

	best := Result{Index: -1, Distance: math.Inf(1), Exhaustive: !local}
	for i := 0; i < n; i++ {
		idx := (i + offset) % n
		d := spatialmath.Distance2D(position, path.At(idx).Position)
		if d < best.Distance {
			best.Distance = d
			best.Index = idx
			continue
		}
		if best.Exhaustive {
			continue
		}
		if best.Distance < threshold {
			break
		}
		best.Exhaustive = true
	}
	return best, nil
}

// Localizer remembers the last localized index so each search can start from it.
type Localizer struct {
	mu        sync.Mutex
	threshold float64
	prev      waypoint.OptionalIndex
}

// New returns a localizer with no previous index.
func New(threshold float64) *Localizer {
	return &Localizer{threshold: threshold}
}

// Locate searches path for the waypoint nearest to position and remembers the answer.
func (l *Localizer) Locate(path *waypoint.Path, position r3.Vector) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := Search(path, position, l.prev, l.threshold)
	if err != nil {
		return Result{}, err
	}
	l.prev = waypoint.IndexOf(res.Index)
	return res, nil
}

// Previous is the last localized index.
func (l *Localizer) Previous() waypoint.OptionalIndex {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prev
}

// Reset forgets the previous index, forcing the next search to be exhaustive.
func (l *Localizer) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prev = waypoint.NoIndex
}
