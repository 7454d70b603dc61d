package core

import (
	"time"
)

// Escalation is a write-once record describing why a plan required human or
// external intervention. It is persisted alongside the plan and handed to
// the notification boundary for delivery.
type Escalation struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	TaskID    string     `json:"task_id,omitempty"`
	Objective string     `json:"objective"`
	Status    PlanStatus `json:"status"`
	Reason    string     `json:"reason"`
	Progress  Progress   `json:"progress"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewEscalation formats an escalation record from the plan's current state.
// taskID may be empty when the escalation concerns the plan as a whole.
// This is the whole of the escalation boundary's formatting logic; delivery
// is the Notifier's concern.
func NewEscalation(plan *Plan, state *ExecutionState, reason, taskID string) Escalation {
	return Escalation{
		ID:        NewID(),
		PlanID:    plan.ID,
		TaskID:    taskID,
		Objective: plan.Objective,
		Status:    plan.Status,
		Reason:    reason,
		Progress:  state.Progress(len(plan.Tasks)),
		Timestamp: time.Now().UTC(),
	}
}

// NotificationKind distinguishes the records crossing the delivery boundary.
type NotificationKind string

const (
	// NotificationKindEscalation signals a plan requiring intervention.
	NotificationKindEscalation NotificationKind = "escalation"
	// NotificationKindCompletion signals a successfully completed plan.
	NotificationKindCompletion NotificationKind = "completion"
	// NotificationKindMessage carries an application-level message emitted
	// by a notification task.
	NotificationKindMessage NotificationKind = "message"
)

// Notification is the structured record handed to the delivery collaborator.
// Delivery is fire-and-forget from the engine's perspective.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	PlanID     string           `json:"plan_id"`
	Objective  string           `json:"objective,omitempty"`
	Message    string           `json:"message,omitempty"`
	Channel    string           `json:"channel,omitempty"`
	Escalation *Escalation      `json:"escalation,omitempty"`
	Progress   Progress         `json:"progress"`
	Timestamp  time.Time        `json:"timestamp"`
}
