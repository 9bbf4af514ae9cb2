package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsConcurrently(t *testing.T) {
	var g = NewGroup(context.Background())
	var doneCh = make(chan int, 2)

	g.Queue("a", func() error { doneCh <- 1; return nil })
	g.Queue("b", func() error { doneCh <- 2; return nil })

	require.NoError(t, g.Wait())
	assert.Len(t, doneCh, 2)
}

func TestQueueFailureCancelsContext(t *testing.T) {
	var g = NewGroup(context.Background())

	g.Queue("failing", func() error { return assert.AnError })

	select {
	case <-g.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled after task failure")
	}
	var err = g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestQueueRecoversPanics(t *testing.T) {
	var g = NewGroup(context.Background())

	g.Queue("panicker", func() error { panic("boom") })

	var err = g.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicker")
}

func TestCancelStopsWithoutError(t *testing.T) {
	var g = NewGroup(context.Background())
	g.Queue("waits", func() error {
		<-g.Context().Done()
		return nil
	})
	g.Cancel()
	require.NoError(t, g.Wait())
}

func TestCancelDoesNotSurfaceCooperativeCancellationAsFailure(t *testing.T) {
	var g = NewGroup(context.Background())
	g.Queue("waits", func() error {
		<-g.Context().Done()
		return g.Context().Err()
	})
	g.Cancel()
	require.NoError(t, g.Wait())
}
