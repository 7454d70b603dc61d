package tool

import (
	"context"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// ApprovalGate is the self-approving gate kind. Tasks of this kind implement
// approval internally and bypass the engine's external approval gate
// entirely, so dispatching one records an immediate approval.
//
// Input:
//
//	approver optional identity recorded on the approval
//	notes    optional free-form notes
type ApprovalGate struct{}

// NewApprovalGate constructs the approval-gate tool.
func NewApprovalGate() *ApprovalGate { return &ApprovalGate{} }

// Kind returns core.ToolKindApprovalGate.
func (t *ApprovalGate) Kind() core.ToolKind { return core.ToolKindApprovalGate }

// Description returns the tool summary.
func (t *ApprovalGate) Description() string {
	return "Self-approving checkpoint recorded without external intervention"
}

// Execute records the approval.
func (t *ApprovalGate) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	approver, _ := input["approver"].(string)
	if approver == "" {
		approver = "system"
	}
	notes, _ := input["notes"].(string)

	return map[string]any{
		"approved":    true,
		"approver":    approver,
		"notes":       notes,
		"approved_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}
