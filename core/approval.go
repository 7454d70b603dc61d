package core

// ApprovalDecision is an external yes/no decision resolving a task that is
// waiting for approval.
type ApprovalDecision struct {
	// Approved clears the waiting status when true; when false the task is
	// recorded as failed with a rejection message.
	Approved bool `json:"approved"`
	// Approver identifies who decided.
	Approver string `json:"approver"`
	// Notes carries optional free-form context for the audit trail.
	Notes string `json:"notes,omitempty"`
}
