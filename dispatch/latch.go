// Package dispatch implements the deferred-dispatch boundary (spec.md §4.2):
// a one-shot gate that holds inbound protocol RPCs at the server boundary
// until the owning membership service has been bound, then releases them.
package dispatch

import (
	"context"
	"sync"
)

// Latch is a one-shot gate. Calls to Await block until Release is called (or
// their context is cancelled), after which every past and future Await
// returns immediately. Release is idempotent: only the first call has any
// effect, matching spec.md §4.2 ("Idempotent after first successful
// release"). The zero value is not ready for use; construct with NewLatch.
//
// This is the "one-shot latch" idiom spec.md §9 recommends in place of a
// per-call busy-wait: a channel closed exactly once, which every blocked
// Await selects on alongside the caller's context.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

// NewLatch returns a Latch that has not yet been released.
func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Release unblocks every call to Await, past and future. Safe to call
// concurrently and more than once; only the first call has an effect.
func (l *Latch) Release() {
	l.once.Do(func() { close(l.ch) })
}

// Released reports whether Release has already been called, without
// blocking.
func (l *Latch) Released() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Await blocks the calling goroutine until Release is called or ctx is
// cancelled, whichever happens first. It returns ctx.Err() in the latter
// case, nil in the former.
func (l *Latch) Await(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
