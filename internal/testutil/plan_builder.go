package testutil

import (
	"time"

	"github.com/hupe1980/planmesh/core"
)

// TaskBuilder provides a fluent helper for constructing subtasks in tests.
// Example:
//
//	task := NewTaskBuilder("fetch").Tool(core.ToolKindHTTPCall).DependsOn("auth").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TaskBuilder struct {
	id               string
	name             string
	toolKind         core.ToolKind
	input            map[string]any
	dependsOn        []string
	retries          int
	timeout          time.Duration
	requiresApproval bool
}

// NewTaskBuilder creates a builder for a task with the given id. The name
// defaults to the id and the tool kind to the generic "test" kind.
func NewTaskBuilder(id string) *TaskBuilder {
	return &TaskBuilder{id: id, name: id, toolKind: core.ToolKind("test")}
}

// Name overrides the display name (chainable).
func (b *TaskBuilder) Name(n string) *TaskBuilder { b.name = n; return b }

// Tool sets the tool kind the task dispatches to (chainable).
func (b *TaskBuilder) Tool(k core.ToolKind) *TaskBuilder { b.toolKind = k; return b }

// Input sets or overwrites a single input key/value pair (chainable).
func (b *TaskBuilder) Input(key string, val any) *TaskBuilder {
	if b.input == nil {
		b.input = map[string]any{}
	}
	b.input[key] = val
	return b
}

// DependsOn appends dependency task ids (chainable).
func (b *TaskBuilder) DependsOn(ids ...string) *TaskBuilder {
	b.dependsOn = append(b.dependsOn, ids...)
	return b
}

// Retries sets the retry budget (chainable).
func (b *TaskBuilder) Retries(n int) *TaskBuilder { b.retries = n; return b }

// Timeout sets the per-attempt timeout (chainable).
func (b *TaskBuilder) Timeout(d time.Duration) *TaskBuilder { b.timeout = d; return b }

// RequiresApproval marks the task as approval-gated (chainable).
func (b *TaskBuilder) RequiresApproval() *TaskBuilder { b.requiresApproval = true; return b }

// Build assembles the subtask.
func (b *TaskBuilder) Build() core.SubTask {
	return core.SubTask{
		ID:               b.id,
		Name:             b.name,
		ToolKind:         b.toolKind,
		Input:            b.input,
		DependsOn:        b.dependsOn,
		Retries:          b.retries,
		Timeout:          b.timeout,
		RequiresApproval: b.requiresApproval,
	}
}

// PlanBuilder helps construct executing plans with fluent chaining for tests.
// Example:
//
//	plan := NewPlanBuilder("plan-1").Tasks(t1, t2).Build()
type PlanBuilder struct {
	id        string
	objective string
	status    core.PlanStatus
	tasks     []core.SubTask
}

// NewPlanBuilder creates a builder for a plan with the given id. The status
// defaults to executing, which is what most scheduling tests need.
func NewPlanBuilder(id string) *PlanBuilder {
	return &PlanBuilder{id: id, objective: "test objective", status: core.PlanStatusExecuting}
}

// Objective overrides the objective text (chainable).
func (b *PlanBuilder) Objective(o string) *PlanBuilder { b.objective = o; return b }

// Status overrides the plan status (chainable).
func (b *PlanBuilder) Status(s core.PlanStatus) *PlanBuilder { b.status = s; return b }

// Tasks appends subtasks in declaration order (chainable).
func (b *PlanBuilder) Tasks(tasks ...core.SubTask) *PlanBuilder {
	b.tasks = append(b.tasks, tasks...)
	return b
}

// Build assembles the plan.
func (b *PlanBuilder) Build() *core.Plan {
	now := time.Now().UTC()
	return &core.Plan{
		ID:        b.id,
		Objective: b.objective,
		Status:    b.status,
		Tasks:     b.tasks,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CompletedResult returns a completed task result with the given output.
func CompletedResult(taskID string, output any) core.TaskResult {
	now := time.Now().UTC()
	return core.TaskResult{
		TaskID:     taskID,
		Status:     core.TaskStatusCompleted,
		StartedAt:  now,
		FinishedAt: now,
		Output:     output,
	}
}

// FailedResult returns a failed task result with the given error message.
func FailedResult(taskID, errMsg string) core.TaskResult {
	now := time.Now().UTC()
	return core.TaskResult{
		TaskID:     taskID,
		Status:     core.TaskStatusFailed,
		StartedAt:  now,
		FinishedAt: now,
		Error:      errMsg,
	}
}
