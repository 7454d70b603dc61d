// Package planmesh provides a high-level façade over the core Engine and its
// collaborators (planner, synthesizer, store, notifier & logging) enabling
// rapid construction of plan-driven execution systems. Most applications
// interact with this package by:
//  1. Creating a PlanMesh via New() with a planner and synthesizer
//     (optionally overriding the default in-memory store and no-op logger)
//  2. Registering one or more tools (HTTP calls, webhooks, transforms, custom)
//  3. Submitting objectives (Execute) or managing the lifecycle step by step
//     (CreatePlan, Launch, Approve, Cancel)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable store
// implementation and a structured logger.
package planmesh

import (
	"context"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/engine"
	"github.com/hupe1980/planmesh/logging"
	"github.com/hupe1980/planmesh/store"
	"github.com/hupe1980/planmesh/tool"
)

// Options configures the PlanMesh instance.
type Options struct {
	// Engine configuration (timeouts, backoff, failure ceiling)
	EngineConfig engine.Config

	// Store (defaults to an in-memory implementation if not provided)
	Store core.Store

	// Notifier receives escalation and completion records. Defaults to a
	// logging notifier wired to Logger.
	Notifier core.Notifier

	// Hooks receive lifecycle callbacks for observation. All hooks are
	// optional.
	Hooks engine.Hooks

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// PlanMesh is the high-level façade aggregating the underlying engine and its
// collaborators.
type PlanMesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new PlanMesh instance with optional overrides. Any unset
// collaborator is initialized with a safe default.
func New(p core.Planner, s core.Synthesizer, optFns ...func(o *Options)) *PlanMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Store:        store.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(p, s, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.Store
		o.Notifier = opts.Notifier
		o.Hooks = opts.Hooks
		o.Logger = opts.Logger
	})

	return &PlanMesh{opts: opts, engine: e}
}

// RegisterTool adds a tool to the underlying engine's registry.
func (m *PlanMesh) RegisterTool(t tool.Tool) { m.engine.RegisterTool(t) }

// CreatePlan persists a new pending plan without starting it.
func (m *PlanMesh) CreatePlan(ctx context.Context, objective string, metadata core.PlanMetadata) (*core.Plan, error) {
	return m.engine.CreatePlan(ctx, objective, metadata)
}

// Launch requests task generation for a pending plan and drives execution
// until it completes, blocks, fails or awaits approval.
func (m *PlanMesh) Launch(ctx context.Context, planID string) error {
	return m.engine.Launch(ctx, planID)
}

// Execute is a synchronous helper combining CreatePlan and Launch. It returns
// the plan in its post-launch condition together with the execution state;
// callers inspect plan.Status to distinguish completion from a blocked or
// approval-suspended plan.
func (m *PlanMesh) Execute(ctx context.Context, objective string, metadata core.PlanMetadata) (*core.Plan, *core.ExecutionState, error) {
	plan, err := m.engine.CreatePlan(ctx, objective, metadata)
	if err != nil {
		return nil, nil, err
	}
	if err := m.engine.Launch(ctx, plan.ID); err != nil {
		return nil, nil, err
	}
	plan, err = m.engine.GetPlan(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	state, err := m.engine.GetState(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	return plan, state, nil
}

// Approve resolves a task awaiting approval and resumes execution.
func (m *PlanMesh) Approve(ctx context.Context, planID, taskID string, decision core.ApprovalDecision) error {
	return m.engine.Approve(ctx, planID, taskID, decision)
}

// Resume re-enters execution for a plan, e.g. after a process restart on top
// of a durable store.
func (m *PlanMesh) Resume(ctx context.Context, planID string) error {
	return m.engine.Resume(ctx, planID)
}

// Cancel transitions a non-terminal plan to cancelled.
func (m *PlanMesh) Cancel(ctx context.Context, planID string) error {
	return m.engine.Cancel(ctx, planID)
}

// GetPlan returns a plan by id.
func (m *PlanMesh) GetPlan(ctx context.Context, planID string) (*core.Plan, error) {
	return m.engine.GetPlan(ctx, planID)
}

// GetState returns the execution state of a plan.
func (m *PlanMesh) GetState(ctx context.Context, planID string) (*core.ExecutionState, error) {
	return m.engine.GetState(ctx, planID)
}

// ListEscalations returns the escalation records persisted for a plan.
func (m *PlanMesh) ListEscalations(ctx context.Context, planID string) ([]core.Escalation, error) {
	return m.engine.ListEscalations(ctx, planID)
}
