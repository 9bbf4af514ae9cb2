// Package task provides a small named-goroutine task runner, the in-module
// substitute for the teacher's external go.gazette.dev/core/task.Group
// (referenced throughout consumer/service.go as `tasks.Queue(name, fn)` /
// `tasks.Context()`, but whose source was not part of the retrieved pack).
// It backs the protocol and transport/response executors of spec.md §5.
package task

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Group runs named tasks on independent goroutines, cancels a shared
// Context on the first task failure, and collects the first non-nil error
// for Wait to return. It mirrors the teacher's tasks.Queue/tasks.Context
// contract used by consumer.Service.QueueTasks.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	mu      sync.Mutex
	firstErr error
}

// NewGroup returns a Group deriving its Context from parent.
func NewGroup(parent context.Context) *Group {
	var ctx, cancel = context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Context returns the Group's Context, cancelled when the Group is stopped
// or when any queued task returns a non-nil error.
func (g *Group) Context() context.Context { return g.ctx }

// Queue runs fn on a new goroutine under the name |name| (used only for
// panic/error diagnostics). If fn returns a non-nil error, the Group's
// Context is cancelled so sibling tasks can observe and unwind. A panic
// within fn is recovered, logged, and converted into the task's error --
// matching spec.md §7's requirement that an internal accounting-invariant
// violation in the protocol executor surface as a logged failure rather
// than crash the process.
func (g *Group) Queue(name string, fn func() error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		var err = g.runRecovered(name, fn)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) && g.ctx.Err() != nil {
			// The Group was already stopping (via Cancel, or another task's
			// failure) when fn observed the cancellation; that's cooperative
			// unwind, not a new failure, so it doesn't clobber firstErr.
			return
		}
		g.recordErr(name, err)
		g.cancel()
	}()
}

func (g *Group) runRecovered(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"task": name, "panic": r}).Error("task panicked")
			err = errors.Errorf("task %s panicked: %v", name, r)
		}
	}()
	return fn()
}

func (g *Group) recordErr(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.firstErr == nil {
		g.firstErr = errors.Wrapf(err, "task %s", name)
	}
	log.WithFields(log.Fields{"task": name, "err": err}).Error("task failed")
}

// Cancel cancels the Group's Context without recording an error, the
// cooperative-shutdown path used by server.Adapter's Stop.
func (g *Group) Cancel() { g.cancel() }

// Wait blocks until every queued task has returned, then returns the first
// non-nil error encountered (or nil).
func (g *Group) Wait() error {
	g.wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.firstErr
}
