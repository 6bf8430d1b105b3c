// Package offload runs blocking, CPU-bound calls on a bounded set of worker goroutines.
// Submitting never blocks the caller; the caller only waits when it awaits the result.
package offload

import (
	"runtime"
	"sync"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/semaphore"
)

type Pool struct {
	sema *semaphore.Semaphore
	size uint
	// pending counts calls from Submit until they return, including calls waiting for a slot
	pending sync.WaitGroup
}

// NewPool creates a pool running at most maxWorkers calls at once. 0 means one worker per CPU.
func NewPool(maxWorkers uint) *Pool {
	if maxWorkers == 0 {
		maxWorkers = uint(runtime.NumCPU())
	}

	return &Pool{sema: semaphore.NewSemaphore(maxWorkers), size: maxWorkers}
}

func (p *Pool) Size() uint {
	return p.size
}

// Running returns the amount of calls currently executing
func (p *Pool) Running() int {
	return p.sema.CurrentlyRunning()
}

// Wait blocks until all submitted calls have finished
func (p *Pool) Wait() {
	p.pending.Wait()
}

type Future[T any] struct {
	done  chan struct{}
	value T
	err   errorsx.Error
}

// Await blocks until the call has run to completion. There is no way to abandon a call once submitted.
func (f *Future[T]) Await() (T, errorsx.Error) {
	<-f.done
	return f.value, f.err
}

// Submit schedules fn on the pool and returns immediately.
// A panic inside fn is returned as an error from Await.
func Submit[T any](p *Pool, fn func() (T, errorsx.Error)) *Future[T] {
	future := &Future[T]{done: make(chan struct{})}

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.sema.Add()
		defer p.sema.Done()
		defer close(future.done)
		defer func() {
			if r := recover(); r != nil {
				future.err = errorsx.Errorf("panic in offloaded call: %v", r)
			}
		}()

		future.value, future.err = fn()
	}()

	return future
}

// Run submits fn and waits for its result
func Run[T any](p *Pool, fn func() (T, errorsx.Error)) (T, errorsx.Error) {
	return Submit(p, fn).Await()
}
