// Package scheduler implements the dependency scheduler: given a plan and
// its execution state it selects the next eligible task, detects terminal
// completion and detects dependency-blocked deadlock. It never dispatches
// work itself and holds no state of its own.
package scheduler

import (
	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/logging"
)

// Scheduler selects tasks and classifies plan-level progress. It is
// stateless and safe for concurrent use.
type Scheduler struct {
	logger logging.Logger
}

// Options configures a Scheduler.
type Options struct {
	// Logger defaults to the no-op logger.
	Logger logging.Logger
}

// New constructs a Scheduler.
func New(optFns ...func(o *Options)) *Scheduler {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scheduler{logger: opts.Logger}
}

// Eligible reports whether a task may run now: it is in neither the
// completed nor the failed set, it is not suspended waiting for approval,
// and every dependency is in the completed set.
func (s *Scheduler) Eligible(task *core.SubTask, state *core.ExecutionState) bool {
	if state.IsCompleted(task.ID) || state.IsFailed(task.ID) || state.IsWaitingApproval(task.ID) {
		return false
	}
	for _, dep := range task.DependsOn {
		if !state.IsCompleted(dep) {
			return false
		}
	}
	return true
}

// Next scans tasks in plan order and returns the first eligible one. The
// declared order imposes a deterministic, stable pick among otherwise
// unordered ready tasks (first declared, first run), which callers rely on
// for reproducibility.
func (s *Scheduler) Next(plan *core.Plan, state *core.ExecutionState) (*core.SubTask, bool) {
	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		if s.Eligible(task, state) {
			s.logger.Debug("scheduler.next", "plan_id", plan.ID, "task_id", task.ID)
			return task, true
		}
	}
	return nil, false
}

// Done reports terminal completion: every task id is in the completed set.
func (s *Scheduler) Done(plan *core.Plan, state *core.ExecutionState) bool {
	return len(plan.Tasks) > 0 && len(state.Completed) == len(plan.Tasks)
}

// Blocked returns the first non-terminal task whose dependency set
// intersects the failed set, or nil when no task is dependency-blocked.
// A non-nil result means the plan cannot make progress without intervention.
func (s *Scheduler) Blocked(plan *core.Plan, state *core.ExecutionState) *core.SubTask {
	for i := range plan.Tasks {
		task := &plan.Tasks[i]
		if state.IsCompleted(task.ID) || state.IsFailed(task.ID) {
			continue
		}
		for _, dep := range task.DependsOn {
			if state.IsFailed(dep) {
				s.logger.Debug("scheduler.blocked", "plan_id", plan.ID, "task_id", task.ID, "failed_dep", dep)
				return task
			}
		}
	}
	return nil
}
