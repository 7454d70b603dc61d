package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/logging"
	"github.com/hupe1980/planmesh/tool"
)

// Dispatcher executes one task at a time: reference resolution, then up to
// retries+1 timeout-bounded attempts with doubling backoff between them.
// Every outcome is represented as a TaskResult; Dispatch never returns an
// error to its caller.
type Dispatcher struct {
	registry       *Registry
	logger         logging.Logger
	backoffBase    time.Duration
	defaultTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Options configures a Dispatcher.
type Options struct {
	// Logger defaults to the no-op logger.
	Logger logging.Logger
	// BackoffBase is the delay before the first retry; each further retry
	// doubles it. Defaults to 1s.
	BackoffBase time.Duration
	// DefaultTimeout bounds attempts for tasks without an explicit timeout.
	// Defaults to 30s.
	DefaultTimeout time.Duration
	// Sleep is the backoff wait; replaceable in tests. The default honors
	// context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewDispatcher constructs a Dispatcher over a registry.
func NewDispatcher(registry *Registry, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		BackoffBase:    time.Second,
		DefaultTimeout: 30 * time.Second,
		Sleep:          sleepCtx,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{
		registry:       registry,
		logger:         opts.Logger,
		backoffBase:    opts.BackoffBase,
		defaultTimeout: opts.DefaultTimeout,
		sleep:          opts.Sleep,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch executes the task and returns a terminal TaskResult: completed on
// the first successful attempt, failed once the retry budget is exhausted or
// the context is cancelled. RetryAttempt records the zero-based attempt that
// produced the result, so a task with retries = N that always fails yields
// N+1 attempts and RetryAttempt = N.
func (d *Dispatcher) Dispatch(ctx context.Context, task core.SubTask, execCtx *core.ExecutionContext) core.TaskResult {
	started := time.Now().UTC()

	t, ok := d.registry.Lookup(task.ToolKind)
	if !ok {
		return d.failure(task, started, 0, fmt.Sprintf("no tool registered for kind %q", task.ToolKind))
	}

	input := ResolveReferences(task.Input, execCtx.Outputs(), d.logger)

	var lastErr error
	for attempt := 0; attempt <= task.Retries; attempt++ {
		if attempt > 0 {
			delay := d.backoffBase << (attempt - 1)
			d.logger.Debug("dispatch.backoff",
				"task_id", task.ID, "attempt", attempt, "delay", delay, "correlation_id", execCtx.CorrelationID())
			if err := d.sleep(ctx, delay); err != nil {
				return d.failure(task, started, attempt, fmt.Sprintf("dispatch cancelled during backoff: %v", err))
			}
		}

		output, err := d.invoke(ctx, t, task, execCtx, input)
		if err == nil {
			finished := time.Now().UTC()
			d.logger.Info("dispatch.completed",
				"task_id", task.ID, "tool_kind", task.ToolKind, "attempt", attempt,
				"duration_ms", finished.Sub(started).Milliseconds(), "correlation_id", execCtx.CorrelationID())
			return core.TaskResult{
				TaskID:       task.ID,
				Status:       core.TaskStatusCompleted,
				StartedAt:    started,
				FinishedAt:   finished,
				Output:       output,
				RetryAttempt: attempt,
				Duration:     finished.Sub(started),
			}
		}

		lastErr = err
		d.logger.Warn("dispatch.attempt_failed",
			"task_id", task.ID, "tool_kind", task.ToolKind, "attempt", attempt,
			"error", err.Error(), "correlation_id", execCtx.CorrelationID())

		if ctx.Err() != nil {
			return d.failure(task, started, attempt, fmt.Sprintf("dispatch cancelled: %v", ctx.Err()))
		}
	}

	return d.failure(task, started, task.Retries, lastErr.Error())
}

// invoke runs one timeout-bounded attempt. The timeout is best-effort: the
// attempt fails when the deadline passes even if the underlying work is
// still running; the tool observes cancellation through its context but is
// not force-terminated.
func (d *Dispatcher) invoke(
	ctx context.Context,
	t tool.Tool,
	task core.SubTask,
	execCtx *core.ExecutionContext,
	input map[string]any,
) (any, error) {
	timeout := task.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		output any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		output, err := t.Execute(callCtx, execCtx, input)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("task %s timed out after %s", task.ID, timeout)
		}
		return o.output, o.err
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("task %s timed out after %s", task.ID, timeout)
		}
		return nil, callCtx.Err()
	}
}

func (d *Dispatcher) failure(task core.SubTask, started time.Time, attempt int, msg string) core.TaskResult {
	finished := time.Now().UTC()
	return core.TaskResult{
		TaskID:       task.ID,
		Status:       core.TaskStatusFailed,
		StartedAt:    started,
		FinishedAt:   finished,
		Error:        msg,
		RetryAttempt: attempt,
		Duration:     finished.Sub(started),
	}
}
