// Package asyncmutex provides a spinlock for values shared between executor
// tasks. A task that finds the lock taken sleeps for a short backoff and
// retries instead of blocking its goroutine, so the other tasks keep running.
//
// The lock is expected to be uncontended; it makes no fairness promise.
package asyncmutex

import (
	"sync/atomic"
	"time"

	"github.com/srg/blehub/internal/executor"
)

// Backoff is how long Lock sleeps between attempts.
const Backoff = time.Millisecond

// Mutex guards a value of type T.
type Mutex[T any] struct {
	locked atomic.Bool
	value  T
}

// New creates an unlocked Mutex holding value.
func New[T any](value T) *Mutex[T] {
	return &Mutex[T]{value: value}
}

// Lock acquires the mutex on behalf of t, sleeping Backoff between attempts.
// The mutex is not reentrant: locking twice from one task never succeeds.
func (m *Mutex[T]) Lock(t *executor.Task) *Guard[T] {
	for {
		if g := m.TryLock(); g != nil {
			return g
		}
		t.Sleep(Backoff)
	}
}

// TryLock acquires the mutex if it is free and returns nil otherwise.
func (m *Mutex[T]) TryLock() *Guard[T] {
	if m.locked.CompareAndSwap(false, true) {
		return &Guard[T]{mutex: m}
	}
	return nil
}

// Locked reports whether a guard is outstanding.
func (m *Mutex[T]) Locked() bool {
	return m.locked.Load()
}

// Guard is exclusive access to the value of a Mutex.
type Guard[T any] struct {
	mutex    *Mutex[T]
	released bool
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *Guard[T]) Value() *T {
	if g.released {
		panic("asyncmutex: use of released guard")
	}
	return &g.mutex.value
}

// Release unlocks the mutex. Releasing a guard twice panics.
func (g *Guard[T]) Release() {
	if g.released {
		panic("asyncmutex: guard released twice")
	}
	g.released = true
	g.mutex.locked.Store(false)
}

// With runs fn with the locked value and releases the guard afterwards,
// even if fn panics.
func With[T any, R any](t *executor.Task, m *Mutex[T], fn func(*T) R) R {
	g := m.Lock(t)
	defer g.Release()
	return fn(g.Value())
}
