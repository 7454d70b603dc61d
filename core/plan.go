package core

import (
	"time"
)

// PlanStatus models the plan lifecycle state machine:
//
//	pending → planning → executing ⇄ blocked → {completed | failed | cancelled}
//
// Any non-terminal state may transition to cancelled via an external request.
type PlanStatus string

const (
	// PlanStatusPending is the initial state after plan creation, before
	// task generation has been requested.
	PlanStatusPending PlanStatus = "pending"
	// PlanStatusPlanning indicates task generation is in progress.
	PlanStatusPlanning PlanStatus = "planning"
	// PlanStatusExecuting indicates the scheduler is actively working the
	// task list.
	PlanStatusExecuting PlanStatus = "executing"
	// PlanStatusBlocked indicates no task is eligible and at least one
	// pending task has a failed dependency or awaits human intervention.
	PlanStatusBlocked PlanStatus = "blocked"
	// PlanStatusCompleted is terminal: every task reached the completed set.
	PlanStatusCompleted PlanStatus = "completed"
	// PlanStatusFailed is terminal: a failure was classified unrecoverable.
	PlanStatusFailed PlanStatus = "failed"
	// PlanStatusCancelled is terminal: an external request stopped the plan.
	PlanStatusCancelled PlanStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s PlanStatus) Terminal() bool {
	switch s {
	case PlanStatusCompleted, PlanStatusFailed, PlanStatusCancelled:
		return true
	}
	return false
}

// ToolKind identifies the executor responsible for a task. The set is open:
// the constants below cover the built-in kinds, but applications may register
// tools under any kind string.
type ToolKind string

const (
	// ToolKindWebSearch performs a web search.
	ToolKindWebSearch ToolKind = "web-search"
	// ToolKindMessaging sends a message through a chat or mail channel.
	ToolKindMessaging ToolKind = "messaging"
	// ToolKindTicketing creates or updates a ticket in an external tracker.
	ToolKindTicketing ToolKind = "ticketing"
	// ToolKindDataQuery runs a query against a data source.
	ToolKindDataQuery ToolKind = "data-query"
	// ToolKindApprovalGate is the self-approving gate kind; tasks of this
	// kind implement approval internally and bypass the engine's gate.
	ToolKindApprovalGate ToolKind = "approval-gate"
	// ToolKindExternalCheck verifies a condition in an external system.
	ToolKindExternalCheck ToolKind = "external-check"
	// ToolKindWebhookTrigger fires a webhook with a JSON payload.
	ToolKindWebhookTrigger ToolKind = "webhook-trigger"
	// ToolKindNotification emits a notification through the delivery boundary.
	ToolKindNotification ToolKind = "notification"
	// ToolKindHTTPCall performs a generic HTTP request.
	ToolKindHTTPCall ToolKind = "http-call"
	// ToolKindDataTransform reshapes a prior task output.
	ToolKindDataTransform ToolKind = "data-transform"
	// ToolKindDelay pauses for a configured duration.
	ToolKindDelay ToolKind = "delay"
)

// SubTask is one unit of declared work inside a plan. Input values may be
// literals or references to a prior task's output field using the
// "{{taskID.field.path}}" syntax; references are resolved by the dispatcher
// immediately before execution.
//
// SubTasks are immutable once the plan is generated, except when the whole
// task list is replaced during re-planning.
type SubTask struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ToolKind         ToolKind       `json:"tool_kind"`
	Input            map[string]any `json:"input,omitempty"`
	DependsOn        []string       `json:"depends_on,omitempty"`
	Retries          int            `json:"retries"`
	Timeout          time.Duration  `json:"timeout"`
	RequiresApproval bool           `json:"requires_approval"`
}

// PlanMetadata carries contextual information attached at plan creation.
type PlanMetadata struct {
	Stakeholders []string   `json:"stakeholders,omitempty"`
	Constraints  []string   `json:"constraints,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Tenant       string     `json:"tenant,omitempty"`
}

// Plan is the top-level unit of work. It is owned exclusively by the engine
// once created and mutated only by engine components; the engine never
// deletes a plan (archival is an external concern).
//
// CurrentTaskIndex is advisory only: actual progress is tracked via the
// completed/failed sets in ExecutionState.
type Plan struct {
	ID               string       `json:"id"`
	Objective        string       `json:"objective"`
	Status           PlanStatus   `json:"status"`
	Tasks            []SubTask    `json:"tasks,omitempty"`
	CurrentTaskIndex int          `json:"current_task_index"`
	Metadata         PlanMetadata `json:"metadata"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// NewPlan constructs a pending plan with a fresh identifier.
func NewPlan(objective string, metadata PlanMetadata) *Plan {
	now := time.Now().UTC()
	return &Plan{
		ID:        NewID(),
		Objective: objective,
		Status:    PlanStatusPending,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Task returns the task with the given id, if present.
func (p *Plan) Task(id string) (*SubTask, bool) {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i], true
		}
	}
	return nil, false
}

// SetStatus transitions the plan and stamps UpdatedAt; terminal completion
// additionally stamps CompletedAt.
func (p *Plan) SetStatus(status PlanStatus) {
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	if status == PlanStatusCompleted {
		t := p.UpdatedAt
		p.CompletedAt = &t
	}
}
