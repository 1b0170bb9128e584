package executor

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/srg/blehub/internal/groutine"
	"github.com/srg/blehub/internal/hubtime"
)

// Pollable is anything a task can suspend on.
type Pollable interface {
	// Poll reports whether the awaited condition is satisfied.
	Poll() bool
}

// TaskFunc is the body of a task.
type TaskFunc func(t *Task) error

type event struct {
	wait     Pollable
	done     bool
	err      error
	panicked bool
}

// Task is the handle a task body uses to suspend itself.
type Task struct {
	name  string
	clock Clock
	fn    TaskFunc

	resume chan struct{}
	events chan event
	stop   chan struct{}

	waiting  Pollable
	started  bool
	finished bool
	stopped  bool
}

func newTask(name string, clock Clock, fn TaskFunc) *Task {
	return &Task{
		name:   name,
		clock:  clock,
		fn:     fn,
		resume: make(chan struct{}),
		events: make(chan event),
		stop:   make(chan struct{}),
	}
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Clock returns the clock shared by all tasks of the executor.
func (t *Task) Clock() Clock {
	return t.clock
}

// Now is shorthand for t.Clock().Now().
func (t *Task) Now() hubtime.Time {
	return t.clock.Now()
}

// Await suspends the task until p reports ready. It must only be called
// from the task's own body.
func (t *Task) Await(p Pollable) {
	select {
	case <-t.stop:
		t.exit()
	default:
	}

	t.events <- event{wait: p}

	select {
	case <-t.resume:
	case <-t.stop:
		t.exit()
	}
}

// Sleep suspends the task for d.
func (t *Task) Sleep(d time.Duration) {
	Wait(t, d, Never)
}

// Yield suspends the task until the clock moves on, letting every other
// ready task run first.
func (t *Task) Yield() {
	t.Sleep(0)
}

// exit unwinds the body; deferred cleanup in the body still runs.
func (t *Task) exit() {
	t.stopped = true
	runtime.Goexit()
}

func (t *Task) start(ctx context.Context) {
	t.started = true
	groutine.Go(ctx, t.name, func(context.Context) {
		ev := event{done: true}
		defer func() {
			if r := recover(); r != nil {
				ev.err = &PanicError{Value: r}
				ev.panicked = true
			} else if t.stopped {
				ev.err = errStopped
			}
			t.events <- ev
		}()

		select {
		case <-t.resume:
		case <-t.stop:
			t.stopped = true
			return
		}
		ev.err = t.fn(t)
	})
}

// step hands the baton to the task and waits for it to come back.
func (t *Task) step() event {
	t.resume <- struct{}{}
	ev := <-t.events
	if ev.done {
		t.finished = true
		t.waiting = nil
	} else {
		t.waiting = ev.wait
	}
	return ev
}

// ready reports whether the task can be resumed.
func (t *Task) ready() bool {
	if t.finished {
		return false
	}
	return t.waiting == nil || t.waiting.Poll()
}

// halt unwinds a suspended task and waits for its goroutine to finish.
func (t *Task) halt() {
	if !t.started || t.finished {
		return
	}
	close(t.stop)
	for ev := range t.events {
		if ev.done {
			break
		}
	}
	t.finished = true
}

// PanicError carries the value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
