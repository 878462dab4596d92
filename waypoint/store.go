package waypoint

import (
	"fmt"
	"sync"
)

// DiscontinuityError reports that a replacement path no longer agrees with the old one at the
// index the vehicle was tracking, so any previous localization must be discarded.
type DiscontinuityError struct {
	Index      int
	Distance   float64
	OutOfRange bool
}

func (e *DiscontinuityError) Error() string {
	if e.OutOfRange {
		return fmt.Sprintf("replacement path is shorter than tracked index %d", e.Index)
	}
	return fmt.Sprintf("replacement path moved waypoint %d by %.3f", e.Index, e.Distance)
}

// Store owns the current reference path. Readers always observe a whole path.
type Store struct {
	mu        sync.RWMutex
	path      *Path
	threshold float64
}

// NewStore returns an empty store whose continuity check tolerates threshold of movement.
func NewStore(threshold float64) *Store {
	return &Store{threshold: threshold}
}

// Path returns the current path, nil if none has been set.
func (s *Store) Path() *Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Replace installs next as the current path. An empty path is rejected and the old one kept.
// When tracked names an index into the old path, the waypoint there is compared with the one
// in next; if they differ by more than the threshold, next is still installed and a
// *DiscontinuityError is returned so the caller can drop its localization.
func (s *Store) Replace(next *Path, tracked OptionalIndex) error {
	if next.Len() == 0 {
		return ErrPathEmpty
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.path
	s.path = next

	idx, ok := tracked.Get()
	if !ok || old.Len() == 0 || idx >= old.Len() {
		return nil
	}
	if idx >= next.Len() {
		return &DiscontinuityError{Index: idx, OutOfRange: true}
	}
	a, b := old.waypoints[idx], next.waypoints[idx]
	if !SameWaypoint(a, b, s.threshold) {
		return &DiscontinuityError{Index: idx, Distance: a.Position.Sub(b.Position).Norm()}
	}
	return nil
}
