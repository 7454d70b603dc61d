package core

import (
	"github.com/hupe1980/planmesh/logging"
)

// ExecutionContext carries the per-dispatch environment handed to a tool:
// the snapshot of all prior task outputs (for reference resolution), a
// correlation identifier and a logging sink. It is created fresh for every
// dispatch; tools must not retain it beyond the call.
type ExecutionContext struct {
	planID        string
	correlationID string
	outputs       map[string]any
	logger        logging.Logger
}

// NewExecutionContext constructs an execution context for one dispatch.
// outputs is the prior-outputs map keyed by task id; a nil logger defaults
// to the no-op logger.
func NewExecutionContext(planID, correlationID string, outputs map[string]any, logger logging.Logger) *ExecutionContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ExecutionContext{
		planID:        planID,
		correlationID: correlationID,
		outputs:       outputs,
		logger:        logger,
	}
}

// PlanID returns the owning plan's identifier.
func (c *ExecutionContext) PlanID() string { return c.planID }

// CorrelationID returns the identifier correlating log lines and results of
// this dispatch.
func (c *ExecutionContext) CorrelationID() string { return c.correlationID }

// Outputs returns the prior-outputs map keyed by task id. Callers must treat
// it as read-only.
func (c *ExecutionContext) Outputs() map[string]any { return c.outputs }

// Output returns a single prior task's output, if present.
func (c *ExecutionContext) Output(taskID string) (any, bool) {
	out, ok := c.outputs[taskID]
	return out, ok
}

// Logger returns the logging sink for this dispatch.
func (c *ExecutionContext) Logger() logging.Logger { return c.logger }
