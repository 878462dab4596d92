// Package utils holds small concurrency helpers shared by the tracker.
package utils

import (
	"context"
	"sort"
	"sync"

	goutils "go.viam.com/utils"
)

// Workers is a group of named background loops sharing one context. A loop that panics is
// reported to the panic handler and the others keep running.
type Workers struct {
	ctx     context.Context
	cancel  context.CancelFunc
	onPanic func(name string, recovered interface{})
	wg      sync.WaitGroup

	mu      sync.Mutex
	running map[string]int
}

// NewWorkers returns an empty group whose loops stop when parent is done or Stop is called.
// onPanic may be nil.
func NewWorkers(parent context.Context, onPanic func(name string, recovered interface{})) *Workers {
	ctx, cancel := context.WithCancel(parent)
	return &Workers{ctx: ctx, cancel: cancel, onPanic: onPanic, running: map[string]int{}}
}

// Go starts fn under name and reports whether it was started. Nothing starts once the group
// has been stopped.
func (w *Workers) Go(name string, fn func(context.Context)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx.Err() != nil {
		return false
	}
	w.running[name]++
	w.wg.Add(1)
	goutils.PanicCapturingGoWithCallback(func() {
		defer w.done(name)
		fn(w.ctx)
	}, func(recovered interface{}) {
		if w.onPanic != nil {
			w.onPanic(name, recovered)
		}
	})
	return true
}

func (w *Workers) done(name string) {
	w.mu.Lock()
	if w.running[name]--; w.running[name] <= 0 {
		delete(w.running, name)
	}
	w.mu.Unlock()
	w.wg.Done()
}

// Running lists the names of loops that have not returned yet.
func (w *Workers) Running() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.running))
	for name := range w.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop cancels every loop and waits for them to return. It is safe to call more than once.
func (w *Workers) Stop() {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	w.wg.Wait()
}
