package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/planmesh/classify"
	"github.com/hupe1980/planmesh/core"
)

// drive is the scheduler step chain: it repeatedly selects and dispatches
// the next eligible task until the plan completes, blocks, fails, or no
// task is eligible (everything remaining waits on approval). It is invoked
// by discrete triggers (launch, approval decision, resume), never by a
// background poller.
//
// At most one drive loop runs per plan; a trigger arriving while a loop is
// active returns immediately and the running loop observes the trigger's
// effects on its next re-fetch.
func (e *Engine) drive(ctx context.Context, planID string) error {
	runCtx, ok := e.beginRun(ctx, planID)
	if !ok {
		return nil
	}
	defer e.endRun(planID)

	for {
		plan, err := e.loadPlan(ctx, planID)
		if err != nil {
			// Lookup failures drop the triggering event; nothing to retry.
			e.logger.Error("engine.drive_lookup_failed", "plan_id", planID, "error", err.Error())
			return nil
		}
		if plan.Status != core.PlanStatusExecuting {
			return nil
		}

		state, err := e.loadState(ctx, planID)
		if err != nil {
			e.logger.Error("engine.drive_lookup_failed", "plan_id", planID, "error", err.Error())
			return nil
		}

		task, ok := e.scheduler.Next(plan, state)
		if !ok {
			if e.scheduler.Done(plan, state) {
				return e.complete(ctx, plan, state)
			}
			if blocked := e.scheduler.Blocked(plan, state); blocked != nil {
				reason := fmt.Sprintf("task %q cannot run: a dependency failed", blocked.ID)
				return e.block(ctx, plan, state, reason, blocked.ID)
			}
			// Remaining tasks wait on approval; the next external event
			// re-invokes the loop.
			return nil
		}

		// Approval gate: approval-required tasks of non self-approving
		// kinds suspend instead of dispatching, unless a granted approval
		// is already on record.
		if task.RequiresApproval && task.ToolKind != core.ToolKindApprovalGate && !state.IsApproved(task.ID) {
			state.MarkWaitingApproval(task.ID)
			if err := e.saveState(ctx, state); err != nil {
				return err
			}
			e.logger.Info("engine.approval_requested", "plan_id", planID, "task_id", task.ID)
			continue
		}

		// Advisory cursor; correctness derives from the sets alone.
		if idx := taskIndex(plan, task.ID); idx >= 0 && plan.CurrentTaskIndex != idx {
			plan.CurrentTaskIndex = idx
			if err := e.savePlan(ctx, plan); err != nil {
				return err
			}
		}

		execCtx := core.NewExecutionContext(plan.ID, core.NewID(), cloneOutputs(state.Outputs), e.logger)
		result := e.dispatcher.Dispatch(runCtx, *task, execCtx)

		// Re-fetch before writing: the snapshot is stale once any other
		// event for this plan was processed. A cancel during the dispatch
		// made the plan terminal; the interrupted attempt's result is
		// discarded, not recorded as a task failure.
		plan, err = e.loadPlan(ctx, planID)
		if err != nil {
			e.logger.Error("engine.drive_lookup_failed", "plan_id", planID, "error", err.Error())
			return nil
		}
		if plan.Status != core.PlanStatusExecuting {
			e.logger.Info("engine.result_discarded",
				"plan_id", planID, "task_id", task.ID, "plan_status", string(plan.Status))
			return nil
		}

		state, err = e.loadState(ctx, planID)
		if err != nil {
			e.logger.Error("engine.drive_lookup_failed", "plan_id", planID, "error", err.Error())
			return nil
		}

		if result.Status == core.TaskStatusCompleted {
			state.MarkCompleted(result)
			if err := e.saveState(ctx, state); err != nil {
				return err
			}
			e.hooks.taskCompleted(planID, result)
			continue
		}

		state.MarkFailed(result)
		if err := e.saveState(ctx, state); err != nil {
			return err
		}
		e.hooks.taskFailed(planID, result)

		cont, err := e.handleFailure(ctx, planID, *task, result)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// handleFailure routes a terminal task failure through the classifier.
// It returns whether the drive loop should continue scheduling.
func (e *Engine) handleFailure(ctx context.Context, planID string, task core.SubTask, result core.TaskResult) (bool, error) {
	plan, err := e.loadPlan(ctx, planID)
	if err != nil {
		return false, err
	}
	if plan.Status.Terminal() {
		// A concurrent cancel won the race; the plan stays terminal.
		return false, nil
	}
	state, err := e.loadState(ctx, planID)
	if err != nil {
		return false, err
	}

	decision := e.classifier.Classify(classify.Failure{
		Task:         task,
		Error:        result.Error,
		FailedCount:  len(state.Failed),
		RetryAttempt: result.RetryAttempt,
	})
	e.logger.Info("engine.failure_classified",
		"plan_id", planID, "task_id", task.ID, "outcome", decision.Outcome.String(), "rule", decision.Rule)

	switch decision.Outcome {
	case classify.OutcomeReplan:
		if err := e.replan(ctx, plan, state, task, result); err != nil {
			// A failing planning collaborator never leaves the plan stuck:
			// downgrade to escalation.
			e.logger.Warn("engine.replan_failed", "plan_id", planID, "task_id", task.ID, "error", err.Error())
			reason := fmt.Sprintf("re-planning after task %q failed: %v", task.ID, err)
			return false, e.block(ctx, plan, state, reason, task.ID)
		}
		return true, nil

	case classify.OutcomeEscalate:
		reason := fmt.Sprintf("task %q requires intervention: %s", task.ID, result.Error)
		return false, e.block(ctx, plan, state, reason, task.ID)

	default:
		e.setStatus(ctx, plan, core.PlanStatusFailed)
		e.logger.Error("engine.plan_failed", "plan_id", planID, "task_id", task.ID, "error", result.Error)
		return false, nil
	}
}

// replan asks the planning collaborator for a replacement task list and
// swaps it in place. The failing task is forgiven; results whose ids are
// absent from the new list are pruned, while completed ids that survive
// keep their results.
func (e *Engine) replan(ctx context.Context, plan *core.Plan, state *core.ExecutionState, task core.SubTask, result core.TaskResult) error {
	tasks, err := e.planner.Replan(ctx, plan, task.ID, result.Error, result.RetryAttempt)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("planner returned an empty replacement task list")
	}

	plan.Tasks = e.applyTaskDefaults(tasks)
	keep := make(map[string]bool, len(plan.Tasks))
	for _, t := range plan.Tasks {
		keep[t.ID] = true
	}
	state.PruneTo(keep)
	state.Forgive(task.ID)

	if err := e.saveState(ctx, state); err != nil {
		return err
	}
	if err := e.savePlan(ctx, plan); err != nil {
		return err
	}
	e.logger.Info("engine.replanned", "plan_id", plan.ID, "failing_task", task.ID, "tasks", len(plan.Tasks))
	return nil
}

// block records a blocker, transitions the plan to blocked, persists an
// escalation record and hands it to the notification boundary.
func (e *Engine) block(ctx context.Context, plan *core.Plan, state *core.ExecutionState, reason, taskID string) error {
	state.AddBlocker(taskID, reason)
	if err := e.saveState(ctx, state); err != nil {
		return err
	}
	e.setStatus(ctx, plan, core.PlanStatusBlocked)

	esc := core.NewEscalation(plan, state, reason, taskID)
	if err := e.saveEscalation(ctx, esc); err != nil {
		return err
	}
	e.hooks.escalation(esc)
	e.logger.Warn("engine.escalated", "plan_id", plan.ID, "task_id", taskID, "reason", reason)

	e.deliver(core.Notification{
		Kind:       core.NotificationKindEscalation,
		PlanID:     plan.ID,
		Objective:  plan.Objective,
		Escalation: &esc,
		Progress:   esc.Progress,
		Timestamp:  esc.Timestamp,
	})
	return nil
}

// complete hands the final state to the synthesis collaborator and closes
// the plan out. Synthesis failure does not un-complete the plan; the error
// is recorded as an issue on the result.
func (e *Engine) complete(ctx context.Context, plan *core.Plan, state *core.ExecutionState) error {
	synthesis, err := e.synthesizer.Synthesize(ctx, plan, state)
	if err != nil {
		e.logger.Warn("engine.synthesis_failed", "plan_id", plan.ID, "error", err.Error())
		synthesis = &core.SynthesisResult{
			Summary: fmt.Sprintf("All %d tasks completed.", len(plan.Tasks)),
			Issues:  []string{fmt.Sprintf("report synthesis failed: %v", err)},
		}
	}

	state.Synthesis = synthesis
	if err := e.saveState(ctx, state); err != nil {
		return err
	}
	e.setStatus(ctx, plan, core.PlanStatusCompleted)
	e.logger.Info("engine.plan_completed", "plan_id", plan.ID, "tasks", len(plan.Tasks))

	e.deliver(core.Notification{
		Kind:      core.NotificationKindCompletion,
		PlanID:    plan.ID,
		Objective: plan.Objective,
		Message:   synthesis.Summary,
		Progress:  state.Progress(len(plan.Tasks)),
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// deliver hands a record to the notification collaborator fire-and-forget.
// Delivery runs detached from the triggering event so a slow or failing
// deliverer never stalls scheduling.
func (e *Engine) deliver(n core.Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.notifier.Deliver(ctx, n); err != nil {
			e.logger.Warn("engine.delivery_failed", "plan_id", n.PlanID, "kind", string(n.Kind), "error", err.Error())
		}
	}()
}

func (e *Engine) beginRun(ctx context.Context, planID string) (context.Context, bool) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	if _, exists := e.active[planID]; exists {
		return nil, false
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.active[planID] = cancel
	return runCtx, true
}

func (e *Engine) endRun(planID string) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()
	if cancel, ok := e.active[planID]; ok {
		cancel()
		delete(e.active, planID)
	}
}

func taskIndex(plan *core.Plan, taskID string) int {
	for i := range plan.Tasks {
		if plan.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func cloneOutputs(outputs map[string]any) map[string]any {
	cloned := make(map[string]any, len(outputs))
	for k, v := range outputs {
		cloned[k] = v
	}
	return cloned
}
