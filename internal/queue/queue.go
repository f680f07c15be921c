// Package queue implements the dedicated worker-pool slots C9 hands heavy
// capabilities (transcription, diarization, translation, extraction)
// through — one pool per capability, sized to the number of concurrently
// loaded model instances rather than CPU count, since each slot holds a
// large in-memory model.
package queue

import (
	"context"
	"fmt"
	"sync"

	"pipeline/pkg/logger"
)

// Task is a unit of work submitted to a Pool.
type Task func(ctx context.Context) error

// Pool is a fixed-size worker pool. Unlike a CPU-bound auto-scaling pool,
// its size never changes at runtime: a heavy-model worker has exactly as
// many usable slots as loaded model instances.
type Pool struct {
	name    string
	size    int
	tasks   chan poolJob
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

type poolJob struct {
	ctx  context.Context
	task Task
	done chan error
}

// NewPool returns a Pool with size fixed worker slots, named for logging.
func NewPool(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		name:   name,
		size:   size,
		tasks:  make(chan poolJob, size*4),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the pool's worker goroutines. Safe to call once.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	logger.Info("starting worker pool", "pool", p.name, "slots", p.size)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains in-flight work and terminates all workers.
func (p *Pool) Stop() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
	logger.Info("worker pool stopped", "pool", p.name)
}

// Submit runs task on the next free slot and blocks for its result. The
// caller's ctx governs cancellation of the submission wait; the task
// itself runs under the pool's own lifetime context so a caller timeout
// doesn't leak a half-finished inference into the next job.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	done := make(chan error, 1)
	job := poolJob{ctx: p.ctx, task: task, done: done}

	select {
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool %q is shutting down", p.name)
	default:
	}

	select {
	case p.tasks <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool %q is shutting down", p.name)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.tasks {
		job.done <- job.task(job.ctx)
	}
	_ = id
}

// Stats returns a snapshot of queue depth and slot count for the admin
// surface.
func (p *Pool) Stats() map[string]any {
	return map[string]any{
		"pool":        p.name,
		"slots":       p.size,
		"queued":      len(p.tasks),
		"queue_cap":   cap(p.tasks),
	}
}
