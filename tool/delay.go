package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// Delay pauses execution for a configured duration, respecting context
// cancellation.
//
// Input:
//
//	duration duration string ("1500ms", "2s") or a number of milliseconds
//
// Output: map with "waited" set to the normalized duration string.
type Delay struct{}

// NewDelay constructs the delay tool.
func NewDelay() *Delay { return &Delay{} }

// Kind returns core.ToolKindDelay.
func (t *Delay) Kind() core.ToolKind { return core.ToolKindDelay }

// Description returns the tool summary.
func (t *Delay) Description() string { return "Pause for a configured duration" }

// Execute sleeps for the requested duration or until the context is done.
func (t *Delay) Execute(ctx context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
	d, err := t.parseDuration(input["duration"])
	if err != nil {
		return nil, err
	}

	select {
	case <-time.After(d):
		return map[string]any{"waited": d.String()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *Delay) parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, NewToolError(t.Kind(), fmt.Sprintf("invalid duration %q", v), "VALIDATION_ERROR")
		}
		return d, nil
	case float64:
		// JSON numbers arrive as float64; interpreted as milliseconds.
		return time.Duration(v) * time.Millisecond, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case nil:
		return 0, NewToolError(t.Kind(), `missing required input "duration"`, "VALIDATION_ERROR")
	default:
		return 0, NewToolError(t.Kind(), fmt.Sprintf("unsupported duration type %T", raw), "VALIDATION_ERROR")
	}
}
