package core

import "errors"

// Sentinel errors for lookup failures. Triggering events that hit one of
// these are dropped after logging; they are never retried.
var (
	// ErrPlanNotFound indicates the plan id has no stored record.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrTaskNotFound indicates the task id is absent from the plan's task list.
	ErrTaskNotFound = errors.New("task not found")
	// ErrPlanTerminal indicates an operation was attempted on a plan in a
	// terminal state.
	ErrPlanTerminal = errors.New("plan is in a terminal state")
)
