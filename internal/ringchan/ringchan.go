// Package ringchan provides a bounded hand-off between a producer goroutine
// that must never block and a consumer that polls.
package ringchan

import "sync/atomic"

// Ring is a buffered channel with overwrite-oldest semantics. Producers call
// Push from any goroutine; the consumer calls Poll.
//
//	r := ringchan.New[int](3)
//	for i := 0; i < 5; i++ {
//	    r.Push(i)
//	}
//	v, _ := r.Poll() // 2: values 0 and 1 were dropped
type Ring[T any] struct {
	ch    chan T
	stats Stats
}

// Stats counts traffic through a Ring. Fields are updated atomically.
type Stats struct {
	Pushed  atomic.Int64
	Dropped atomic.Int64
	Polled  atomic.Int64
}

// New creates a Ring holding up to capacity values.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// Push inserts v, discarding the oldest value while the buffer is full.
// It reports whether anything was dropped. Push never blocks.
func (r *Ring[T]) Push(v T) (dropped bool) {
	for {
		select {
		case r.ch <- v:
			r.stats.Pushed.Add(1)
			return dropped
		default:
		}
		// A concurrent Poll may empty the slot first; then the retry succeeds.
		select {
		case <-r.ch:
			r.stats.Dropped.Add(1)
			dropped = true
		default:
		}
	}
}

// Poll returns the oldest value without blocking.
func (r *Ring[T]) Poll() (T, bool) {
	select {
	case v := <-r.ch:
		r.stats.Polled.Add(1)
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Drain discards every buffered value and returns how many there were.
func (r *Ring[T]) Drain() int {
	n := 0
	for {
		select {
		case <-r.ch:
			n++
		default:
			return n
		}
	}
}

func (r *Ring[T]) Len() int { return len(r.ch) }
func (r *Ring[T]) Cap() int { return cap(r.ch) }

// Counters returns the pushed, dropped and polled totals.
func (r *Ring[T]) Counters() (pushed, dropped, polled int64) {
	return r.stats.Pushed.Load(), r.stats.Dropped.Load(), r.stats.Polled.Load()
}
