// Package tool implements the tool subsystem: the uniform execution contract
// the dispatcher invokes per task kind, plus the built-in tool
// implementations (http-call, webhook-trigger, delay, data-transform,
// notification, approval-gate) and a generic function adapter for
// application-supplied kinds such as web-search, messaging, ticketing,
// data-query and external-check.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/planmesh/core"
)

// Tool is the uniform execution contract for one tool kind.
//
// Tool implementations should:
//   - Respect context cancellation on blocking work
//   - Return JSON-serializable outputs (maps, slices, scalars)
//   - Be safe for concurrent use; a single instance serves many plans
//   - Report input problems as *ToolError with code "VALIDATION_ERROR"
type Tool interface {
	// Kind returns the tool kind this implementation serves.
	Kind() core.ToolKind

	// Description returns a human-readable summary of what the tool does.
	// It is surfaced to planners so generated tasks target the right kind.
	Description() string

	// Execute runs the tool against the already reference-resolved input.
	// The returned output becomes the task's raw output, available to
	// downstream tasks.
	Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Kind    core.ToolKind `json:"kind"`              // Kind of the tool that failed
	Message string        `json:"message"`           // Error message
	Code    string        `json:"code"`              // Error code for categorization
	Details any           `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Kind, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(kind core.ToolKind, message, code string) *ToolError {
	return &ToolError{
		Kind:    kind,
		Message: message,
		Code:    code,
	}
}

// stringInput extracts a required string input, returning a validation error
// when absent or of the wrong type. Shared by the built-in tools.
func stringInput(kind core.ToolKind, input map[string]any, key string) (string, error) {
	v, ok := input[key]
	if !ok {
		return "", NewToolError(kind, fmt.Sprintf("missing required input %q", key), "VALIDATION_ERROR")
	}
	s, ok := v.(string)
	if !ok {
		return "", NewToolError(kind, fmt.Sprintf("input %q must be a string", key), "VALIDATION_ERROR")
	}
	return s, nil
}
