// Package executor is the hub's cooperative scheduler.
//
// A fixed set of long-running tasks is joined into one Executor and advanced
// by a single master loop. Each task body runs on its own goroutine, but the
// executor hands a baton from task to task: exactly one body runs at a time
// and control only changes hands when the running task suspends on a
// Pollable (in practice a Sleep). There is no preemption and no priority.
//
// The master loop polls every suspended task once per pass; a task whose
// Pollable reports ready is resumed and runs until its next suspension
// point. When a full pass resumes nothing, the optional idle hook is called
// so a host can sleep instead of spinning.
//
// Tasks are expected to loop forever. A task body that returns, or panics,
// ends Run with a *TaskExitError. BlockOn is the one exception: it drives a
// single task to completion and returns its error, which is how one-shot
// routines such as a discovery session are exercised.
package executor
