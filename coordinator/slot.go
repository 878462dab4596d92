package coordinator

import "sync"

// slot holds the latest value of one asynchronously written record. Readers always see a whole
// value.
type slot[T any] struct {
	mu  sync.RWMutex
	val T
	ok  bool
}

func (s *slot[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val, s.ok = v, true
}

// Swap stores v and returns the previous value and whether one was set.
func (s *slot[T]) Swap(v T) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, had := s.val, s.ok
	s.val, s.ok = v, true
	return old, had
}

func (s *slot[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val, s.ok
}
