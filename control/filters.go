package control

import (
	"sync"

	"github.com/pkg/errors"
)

// LowPassFilter is a first-order IIR smoothing filter.
type LowPassFilter struct {
	mu    sync.Mutex
	a, b  float64
	last  float64
	ready bool
}

// NewLowPassFilter returns a filter with time constant tau at sample period ts.
func NewLowPassFilter(tau, ts float64) (*LowPassFilter, error) {
	if tau < 0 || ts <= 0 {
		return nil, errors.Errorf("low pass filter needs tau >= 0 and ts > 0, got tau=%.3f ts=%.3f", tau, ts)
	}
	r := tau / ts
	return &LowPassFilter{a: 1 / (r + 1), b: r / (r + 1)}, nil
}

// Next feeds x through the filter. The first sample passes through unchanged.
func (f *LowPassFilter) Next(x float64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ready {
		x = f.a*x + f.b*f.last
	}
	f.last = x
	f.ready = true
	return x
}

// Last is the most recent output.
func (f *LowPassFilter) Last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Reset forgets the filter history.
func (f *LowPassFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = 0
	f.ready = false
}
