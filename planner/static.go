package planner

import (
	"context"
	"fmt"

	"github.com/hupe1980/planmesh/core"
)

// Static is a deterministic planner returning a fixed task list. It serves
// tests and applications whose workflow is known up front; re-planning can
// be supplied as a hook or disabled entirely.
type Static struct {
	tasks    []core.SubTask
	replanFn func(ctx context.Context, plan *core.Plan, failingTaskID, cause string, retryCount int) ([]core.SubTask, error)
}

// StaticOptions configures a Static planner.
type StaticOptions struct {
	// ReplanFn handles re-plan requests. When nil, Replan returns an error
	// so failures route to escalation.
	ReplanFn func(ctx context.Context, plan *core.Plan, failingTaskID, cause string, retryCount int) ([]core.SubTask, error)
}

// NewStatic constructs a Static planner over a fixed task list.
func NewStatic(tasks []core.SubTask, optFns ...func(o *StaticOptions)) *Static {
	opts := StaticOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Static{tasks: tasks, replanFn: opts.ReplanFn}
}

// GeneratePlan returns the fixed task list.
func (s *Static) GeneratePlan(ctx context.Context, objective string, metadata core.PlanMetadata) ([]core.SubTask, error) {
	return s.tasks, nil
}

// Replan delegates to the configured hook, or errors when none is set.
func (s *Static) Replan(ctx context.Context, plan *core.Plan, failingTaskID, cause string, retryCount int) ([]core.SubTask, error) {
	if s.replanFn == nil {
		return nil, fmt.Errorf("static planner cannot replan task %q", failingTaskID)
	}
	return s.replanFn(ctx, plan, failingTaskID, cause, retryCount)
}

var _ core.Planner = (*Static)(nil)
