package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrPoolStopped = errors.New("worker pool stopped")

// Job runs on a pool worker. ctx is cancelled when the pool stops.
type Job func(ctx context.Context)

type Pool struct {
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	queue       chan Job

	mu      sync.RWMutex
	running bool
}

func NewPool(workerCount, queueSize int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan Job, queueSize),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running || p.ctx.Err() != nil {
		return
	}
	p.running = true

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	slog.Debug("Worker pool started", "workers", p.workerCount)
}

// Stop cancels in-flight jobs and waits for workers to exit. Jobs still
// queued are run with the cancelled context so that they resolve.
func (p *Pool) Stop() {
	p.cancel()

	p.mu.Lock()
	wasRunning := p.running
	p.running = false
	p.mu.Unlock()

	if !wasRunning {
		return
	}

	p.wg.Wait()

	for {
		select {
		case job := <-p.queue:
			p.execute(-1, job)
		default:
			slog.Debug("Worker pool stopped")
			return
		}
	}
}

func (p *Pool) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *Pool) WorkerCount() int {
	return p.workerCount
}

// Submit queues a job, blocking while the queue is full. It fails when ctx
// is done or the pool is not running.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.queue:
			p.execute(id, job)

		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) execute(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Worker job panicked", "worker_id", workerID, "error", fmt.Sprint(r))
		}
	}()

	job(p.ctx)
}
