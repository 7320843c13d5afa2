package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	taskQueue   chan Task
	wg          sync.WaitGroup
	isClosing   atomic.Bool // thread-safe value
	taskTimeout time.Duration
	log         zerolog.Logger
}

const (
	defaultQueueSize   = 1000
	defaultTaskTimeout = 5 * time.Second
)

func NewWorkerPool(size int, log zerolog.Logger) *WorkerPool {
	return newWorkerPool(size, defaultQueueSize, log)
}

func newWorkerPool(size, queueSize int, log zerolog.Logger) *WorkerPool {
	wp := &WorkerPool{
		taskQueue:   make(chan Task, queueSize),
		taskTimeout: defaultTaskTimeout,
		log:         log,
	}

	// Start the workers
	for i := 0; i < size; i++ {
		wp.wg.Add(1) // add to WaitGroup
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done() // signal when worker finished
	for task := range wp.taskQueue {
		ctx, cancel := context.WithTimeout(context.Background(), wp.taskTimeout)
		if err := task(ctx); err != nil { // run task
			wp.log.Warn().Err(err).Msg("Worker task failed")
		}
		cancel()
	}
}

// Submit queues t and reports whether it was accepted
func (wp *WorkerPool) Submit(t Task) bool {
	if wp.isClosing.Load() {
		wp.log.Warn().Msg("task submitted during shutdown, dropping")
		return false
	}
	select {
	case wp.taskQueue <- t: // send task to worker pool
		return true
	default:
		wp.log.Warn().Msg("Task queue full, dropping task!")
		return false
	}
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	if wp.isClosing.Swap(true) {
		return
	}
	close(wp.taskQueue) // Stop accepting new tasks
	wp.wg.Wait()        // Wait for all active workers to finish tasks
}
