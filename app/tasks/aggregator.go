package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var ErrAggregation = errors.New("aggregation failed")

// Outcome is the result of one unit of work.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Aggregator runs units of work on a pool and calls done exactly once, with
// one outcome per registered unit in registration order, after every unit
// has resolved and Close has been called. Units may be registered until
// Close.
type Aggregator[T any] struct {
	ctx  context.Context
	pool *Pool
	done func([]Outcome[T])

	mu       sync.Mutex
	outcomes []Outcome[T]

	// remaining starts at one so the aggregator cannot complete while
	// units are still being registered; Close releases that hold.
	remaining atomic.Int64
	closed    atomic.Bool
}

func NewAggregator[T any](ctx context.Context, pool *Pool, done func([]Outcome[T])) *Aggregator[T] {
	a := &Aggregator[T]{
		ctx:  ctx,
		pool: pool,
		done: done,
	}
	a.remaining.Store(1)
	return a
}

// Track registers a unit resolved by the returned function. Only the first
// call to the function counts.
func (a *Aggregator[T]) Track() func(T, error) {
	if a.closed.Load() {
		panic("tasks: Aggregator.Track called after Close")
	}

	a.mu.Lock()
	index := len(a.outcomes)
	a.outcomes = append(a.outcomes, Outcome[T]{})
	a.mu.Unlock()

	a.remaining.Add(1)

	var once sync.Once
	return func(value T, err error) {
		once.Do(func() {
			a.mu.Lock()
			a.outcomes[index] = Outcome[T]{Value: value, Err: err}
			a.mu.Unlock()

			a.release()
		})
	}
}

// Go registers fn as a unit and schedules it on the pool, blocking while the
// pool queue is full. A unit that cannot be scheduled, panics, or observes
// cancellation still resolves, with an error. Units cut short by the pool
// stopping carry ErrPoolStopped.
func (a *Aggregator[T]) Go(fn func(ctx context.Context) (T, error)) {
	resolve := a.Track()

	job := func(poolCtx context.Context) {
		ctx, cancel := context.WithCancel(a.ctx)
		defer cancel()
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()

		value, err := call(ctx, fn)
		if err != nil && poolCtx.Err() != nil && a.ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrPoolStopped, err)
		}
		resolve(value, err)
	}

	if err := a.pool.Submit(a.ctx, job); err != nil {
		var zero T
		resolve(zero, fmt.Errorf("failed to schedule unit: %w", err))
	}
}

// Close stops registration. If every registered unit has already resolved,
// or none was registered, done runs on the calling goroutine.
func (a *Aggregator[T]) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.release()
}

func (a *Aggregator[T]) release() {
	if a.remaining.Add(-1) != 0 {
		return
	}

	a.mu.Lock()
	outcomes := make([]Outcome[T], len(a.outcomes))
	copy(outcomes, a.outcomes)
	a.mu.Unlock()

	a.done(outcomes)
}

func call[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = fmt.Errorf("unit panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	return fn(ctx)
}
