package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := NewWorkerPool(3, zerolog.Nop())
	var count atomic.Int32
	for i := 0; i < 10; i++ {
		assert.True(t, wp.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}
	wp.Shutdown()

	assert.Equal(t, int32(10), count.Load())
}

func TestWorkerPool_FailedTaskDoesNotStopWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := NewWorkerPool(1, zerolog.Nop())
	var ran atomic.Bool
	wp.Submit(func(ctx context.Context) error { return errors.New("boom") })
	wp.Submit(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	wp.Shutdown()

	assert.True(t, ran.Load())
}

func TestWorkerPool_TaskHasDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := NewWorkerPool(1, zerolog.Nop())
	var hasDeadline atomic.Bool
	wp.Submit(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		return nil
	})
	wp.Shutdown()

	assert.True(t, hasDeadline.Load())
}

func TestWorkerPool_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := newWorkerPool(1, 1, zerolog.Nop())
	block := make(chan struct{})
	started := make(chan struct{})
	wp.Submit(func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	})
	<-started

	assert.True(t, wp.Submit(func(ctx context.Context) error { return nil }))
	assert.False(t, wp.Submit(func(ctx context.Context) error { return nil }))

	close(block)
	wp.Shutdown()
}

func TestWorkerPool_DropsAfterShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	wp := NewWorkerPool(2, zerolog.Nop())
	wp.Shutdown()
	wp.Shutdown()

	assert.False(t, wp.Submit(func(ctx context.Context) error { return nil }))
}
