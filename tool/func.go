package tool

import (
	"context"

	"github.com/hupe1980/planmesh/core"
)

// Func is a generic adapter that exposes a plain Go function as a tool for
// an arbitrary kind. It is the extension point for application-supplied
// kinds (web-search, messaging, ticketing, data-query, external-check, …)
// whose concrete implementations live outside the engine.
//
// A Func has no internal mutable state after construction and is safe for
// concurrent use by multiple goroutines.
//
// Example:
//
//	search := tool.NewFunc(core.ToolKindWebSearch, "Search the web",
//	    func(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
//	        return searchClient.Query(ctx, input["query"].(string))
//	    })
type Func struct {
	kind        core.ToolKind
	description string
	fn          func(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error)
}

// NewFunc constructs a Func tool for the given kind.
func NewFunc(
	kind core.ToolKind,
	description string,
	fn func(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error),
) *Func {
	return &Func{kind: kind, description: description, fn: fn}
}

// Kind returns the tool kind this adapter serves.
func (t *Func) Kind() core.ToolKind { return t.kind }

// Description returns the short natural language description of the tool.
func (t *Func) Description() string { return t.description }

// Execute invokes the wrapped function. Errors that are not already a
// *ToolError are wrapped with code "EXECUTION_ERROR" for uniform downstream
// handling.
func (t *Func) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	out, err := t.fn(ctx, execCtx, input)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{
			Kind:    t.kind,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}
	return out, nil
}
