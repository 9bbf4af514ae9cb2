package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitBlocksUntilRelease(t *testing.T) {
	var l = NewLatch()
	assert.False(t, l.Released())

	var done = make(chan error, 1)
	go func() { done <- l.Await(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Await returned before Release")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Await did not return after Release")
	}
	assert.True(t, l.Released())
}

func TestAwaitReturnsImmediatelyAfterRelease(t *testing.T) {
	var l = NewLatch()
	l.Release()

	var err = l.Await(context.Background())
	assert.NoError(t, err)
}

func TestReleaseIsIdempotent(t *testing.T) {
	var l = NewLatch()
	assert.NotPanics(t, func() {
		l.Release()
		l.Release()
		l.Release()
	})
	assert.True(t, l.Released())
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	var l = NewLatch()
	var ctx, cancel = context.WithCancel(context.Background())
	cancel()

	var err = l.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, l.Released())
}

func TestReleaseUnblocksManyWaiters(t *testing.T) {
	var l = NewLatch()

	const waiters = 32
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, l.Await(context.Background()))
		}()
	}

	time.Sleep(10 * time.Millisecond)
	l.Release()

	var doneCh = make(chan struct{})
	go func() { wg.Wait(); close(doneCh) }()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("not all waiters unblocked")
	}
}
