package engine

import (
	"github.com/hupe1980/planmesh/core"
)

// Hooks provides optional lifecycle callbacks for instrumentation and
// cross-cutting concerns (metrics, auditing, tests). Callbacks are invoked
// synchronously from the drive loop; implementations must be fast and must
// not call back into the engine for the same plan.
//
// All fields are optional; nil hooks are skipped.
type Hooks struct {
	// OnStatusChange fires after a plan status transition is persisted.
	OnStatusChange func(plan *core.Plan)

	// OnTaskCompleted fires after a task result is recorded as completed.
	OnTaskCompleted func(planID string, result core.TaskResult)

	// OnTaskFailed fires after a task result is recorded as terminally
	// failed (retry budget exhausted or approval rejected).
	OnTaskFailed func(planID string, result core.TaskResult)

	// OnEscalation fires after an escalation record is persisted, before
	// delivery is attempted.
	OnEscalation func(esc core.Escalation)
}

func (h Hooks) statusChange(plan *core.Plan) {
	if h.OnStatusChange != nil {
		h.OnStatusChange(plan)
	}
}

func (h Hooks) taskCompleted(planID string, result core.TaskResult) {
	if h.OnTaskCompleted != nil {
		h.OnTaskCompleted(planID, result)
	}
}

func (h Hooks) taskFailed(planID string, result core.TaskResult) {
	if h.OnTaskFailed != nil {
		h.OnTaskFailed(planID, result)
	}
}

func (h Hooks) escalation(esc core.Escalation) {
	if h.OnEscalation != nil {
		h.OnEscalation(esc)
	}
}
