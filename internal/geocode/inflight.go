package geocode

import (
	"context"
	"sync"
)

// Inflight enforces "last request wins" for one kind of geocode call per
// form session: starting a new call aborts any previous one still running,
// so a stale response can never be applied over a newer one.
type Inflight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Begin cancels the previous in-flight call, if any, and returns a context
// for the new one. The returned cancel must be called when the call
// finishes to release the context.
func (f *Inflight) Begin(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.cancel = cancel
	f.mu.Unlock()
	return ctx, cancel
}

// Stop aborts the current in-flight call without starting a new one.
func (f *Inflight) Stop() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()
}
