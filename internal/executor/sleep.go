package executor

import (
	"time"

	"github.com/srg/blehub/internal/hubtime"
)

// Clock reports the current wall-clock time.
type Clock interface {
	Now() hubtime.Time
}

// Outcome is the result of a finished Sleep.
type Outcome[T any] struct {
	// Cancelled is true when the cancellation check fired before the deadline.
	Cancelled bool
	// Reason is the payload returned by the cancellation check.
	Reason T
}

// Sleep is a single-shot suspension that becomes ready once the clock passes
// its deadline or its cancellation check returns true. There is no timer
// behind it: it only makes progress when polled.
type Sleep[T any] struct {
	clock    Clock
	deadline hubtime.Time
	cancel   func() (bool, T)

	done    bool
	outcome Outcome[T]
}

// NewSleep creates a Sleep that completes d after now. cancel may be nil.
func NewSleep[T any](clock Clock, d time.Duration, cancel func() (bool, T)) *Sleep[T] {
	return &Sleep[T]{
		clock:    clock,
		deadline: clock.Now().Add(d),
		cancel:   cancel,
	}
}

// Deadline returns the time after which the Sleep completes.
func (s *Sleep[T]) Deadline() hubtime.Time {
	return s.deadline
}

// Poll checks the cancellation predicate, then the deadline. It returns true
// once the Sleep is finished; later calls keep returning true.
func (s *Sleep[T]) Poll() bool {
	if s.done {
		return true
	}
	if s.cancel != nil {
		if cancelled, reason := s.cancel(); cancelled {
			s.finish(Outcome[T]{Cancelled: true, Reason: reason})
			return true
		}
	}
	if s.clock.Now().After(s.deadline) {
		s.finish(Outcome[T]{})
		return true
	}
	return false
}

// Outcome returns the result. It is only meaningful after Poll returned true.
func (s *Sleep[T]) Outcome() Outcome[T] {
	return s.outcome
}

func (s *Sleep[T]) finish(o Outcome[T]) {
	s.done = true
	s.outcome = o
}

// Never is a cancellation check that never fires.
func Never() (bool, struct{}) {
	return false, struct{}{}
}

// Wait suspends t for d, or until cancel fires, and returns the outcome.
func Wait[T any](t *Task, d time.Duration, cancel func() (bool, T)) Outcome[T] {
	s := NewSleep(t.clock, d, cancel)
	t.Await(s)
	return s.Outcome()
}
