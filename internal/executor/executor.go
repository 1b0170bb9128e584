package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
)

var (
	// ErrTaskExited matches any *TaskExitError.
	ErrTaskExited = errors.New("task exited")

	// ErrNoTasks is returned by Run when nothing was added.
	ErrNoTasks = errors.New("no tasks to run")

	errStopped = errors.New("task stopped")
)

// TaskExitError reports a task body that returned or panicked. For a joined
// set of endless tasks this is always an invariant violation.
type TaskExitError struct {
	Task     string
	Err      error
	Panicked bool
}

func (e *TaskExitError) Error() string {
	switch {
	case e.Panicked:
		return fmt.Sprintf("task %q panicked: %v", e.Task, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("task %q exited: %v", e.Task, e.Err)
	default:
		return fmt.Sprintf("task %q exited", e.Task)
	}
}

func (e *TaskExitError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrTaskExited.
func (e *TaskExitError) Is(target error) bool {
	return target == ErrTaskExited
}

// Option configures an Executor.
type Option func(*Executor)

// WithIdle sets the hook called after a pass in which no task was ready.
func WithIdle(fn func()) Option {
	return func(e *Executor) {
		e.idle = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor joins a fixed set of tasks and polls them from one loop.
type Executor struct {
	clock   Clock
	idle    func()
	logger  *logrus.Logger
	tasks   []*Task
	running bool
}

// New creates an executor whose tasks share clock.
func New(clock Clock, opts ...Option) *Executor {
	e := &Executor{
		clock:  clock,
		idle:   runtime.Gosched,
		logger: logrus.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add joins a task. Tasks can only be added before Run.
func (e *Executor) Add(name string, fn TaskFunc) {
	if e.running {
		panic("executor: Add called while running")
	}
	e.tasks = append(e.tasks, newTask(name, e.clock, fn))
}

// Run polls the joined tasks until one of them exits or ctx is done.
// It never returns nil: a task exit yields a *TaskExitError, cancellation
// yields ctx.Err(). All task goroutines have finished when Run returns.
func (e *Executor) Run(ctx context.Context) error {
	if len(e.tasks) == 0 {
		return ErrNoTasks
	}
	return e.loop(ctx, func(t *Task, ev event) error {
		exitErr := &TaskExitError{Task: t.name, Err: ev.err, Panicked: ev.panicked}
		e.logger.WithFields(logrus.Fields{
			"task":  t.name,
			"error": ev.err,
		}).Error("Task exited")
		return exitErr
	})
}

// BlockOn drives fn as the only task until it returns and hands back its
// error. A panic in fn is returned as a *PanicError.
func BlockOn(ctx context.Context, clock Clock, fn TaskFunc, opts ...Option) error {
	e := New(clock, opts...)
	e.Add("block_on", fn)
	return e.loop(ctx, func(_ *Task, ev event) error {
		if ev.err == nil {
			return errDone
		}
		return ev.err
	})
}

var errDone = errors.New("done")

func (e *Executor) loop(ctx context.Context, onExit func(*Task, event) error) (err error) {
	e.running = true
	defer func() {
		e.shutdown()
		e.running = false
		if errors.Is(err, errDone) {
			err = nil
		}
	}()

	for _, t := range e.tasks {
		t.start(ctx)
	}
	e.logger.WithField("tasks", len(e.tasks)).Debug("Executor started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		progressed := false
		for _, t := range e.tasks {
			if !t.ready() {
				continue
			}
			progressed = true
			if ev := t.step(); ev.done {
				return onExit(t, ev)
			}
		}

		if !progressed && e.idle != nil {
			e.idle()
		}
	}
}

func (e *Executor) shutdown() {
	for _, t := range e.tasks {
		t.halt()
	}
	e.logger.Debug("Executor stopped")
}
