package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/planmesh/classify"
	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/dispatch"
	"github.com/hupe1980/planmesh/logging"
	"github.com/hupe1980/planmesh/notify"
	"github.com/hupe1980/planmesh/scheduler"
	"github.com/hupe1980/planmesh/store"
	"github.com/hupe1980/planmesh/tool"
)

// Options configures an Engine instance using the functional options
// pattern. Default implementations are provided for all services to enable
// quick setup for development and testing scenarios.
type Options struct {
	// Config contains execution tuning parameters. Defaults to
	// DefaultConfig if not specified.
	Config Config

	// Store persists Plan, ExecutionState and Escalation records.
	// Defaults to an in-memory implementation.
	Store core.Store

	// Notifier delivers escalation and completion records.
	// Defaults to a logging deliverer.
	Notifier core.Notifier

	// Classifier routes terminal task failures. Defaults to the standard
	// rule table honoring Config.MaxFailedTasks.
	Classifier *classify.Classifier

	// Registry is the tool lookup table. Defaults to an empty registry;
	// register tools via Engine.RegisterTool.
	Registry *dispatch.Registry

	// Hooks provides optional lifecycle callbacks.
	Hooks Hooks

	// Logger provides structured logging. Defaults to the no-op logger.
	Logger logging.Logger
}

// Engine orchestrates plan execution: it owns the scheduler, dispatcher,
// classifier and approval gate, and coordinates the planning, synthesis,
// store and notification collaborators.
//
// The Engine is safe for concurrent use. Independent plans execute in
// parallel; within one plan at most a single task is in flight.
type Engine struct {
	store       core.Store
	planner     core.Planner
	synthesizer core.Synthesizer
	notifier    core.Notifier

	registry   *dispatch.Registry
	dispatcher *dispatch.Dispatcher
	scheduler  *scheduler.Scheduler
	classifier *classify.Classifier

	config Config
	hooks  Hooks
	logger logging.Logger

	// Active drive loops by plan id; guarantees one loop per plan and
	// carries the cancel functions used by Cancel for best-effort
	// interruption of in-flight dispatch waits.
	active   map[string]context.CancelFunc
	activeMu sync.Mutex
}

// New creates an Engine. The planning and synthesis collaborators are
// required; everything else has a development-ready default.
//
// Example:
//
//	eng := engine.New(myPlanner, mySynthesizer,
//	    func(o *engine.Options) {
//	        o.Store = sqliteStore
//	        o.Logger = logger
//	    })
//	eng.RegisterTool(tool.NewHTTPCall())
func New(p core.Planner, s core.Synthesizer, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Registry == nil {
		opts.Registry = dispatch.NewRegistry()
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.New(func(o *classify.Options) {
			o.MaxFailedTasks = opts.Config.MaxFailedTasks
		})
	}

	e := &Engine{
		store:       opts.Store,
		planner:     p,
		synthesizer: s,
		notifier:    opts.Notifier,
		registry:    opts.Registry,
		scheduler:   scheduler.New(func(o *scheduler.Options) { o.Logger = opts.Logger }),
		classifier:  opts.Classifier,
		config:      opts.Config,
		hooks:       opts.Hooks,
		logger:      opts.Logger,
		active:      make(map[string]context.CancelFunc),
	}
	e.dispatcher = dispatch.NewDispatcher(opts.Registry, func(o *dispatch.Options) {
		o.Logger = opts.Logger
		o.BackoffBase = opts.Config.BackoffBase
		o.DefaultTimeout = opts.Config.DefaultTimeout
	})
	return e
}

// RegisterTool makes a tool available for its kind.
func (e *Engine) RegisterTool(t tool.Tool) {
	e.registry.Register(t)
}

// Registry exposes the tool registry for introspection.
func (e *Engine) Registry() *dispatch.Registry {
	return e.registry
}

// CreatePlan persists a new pending plan and its empty execution state.
// Task generation does not start until Launch is called.
func (e *Engine) CreatePlan(ctx context.Context, objective string, metadata core.PlanMetadata) (*core.Plan, error) {
	plan := core.NewPlan(objective, metadata)
	if err := e.savePlan(ctx, plan); err != nil {
		return nil, err
	}
	if err := e.saveState(ctx, core.NewExecutionState(plan.ID)); err != nil {
		return nil, err
	}
	e.logger.Info("engine.plan_created", "plan_id", plan.ID, "objective", objective)
	return plan, nil
}

// Launch requests task generation for a pending plan and, once tasks
// arrive, drives execution until the plan completes, blocks, fails or runs
// out of eligible work. Launch returns when the drive loop yields; it does
// not wait for approvals.
func (e *Engine) Launch(ctx context.Context, planID string) error {
	plan, err := e.loadPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Status != core.PlanStatusPending {
		return fmt.Errorf("plan %s is %s, expected %s", planID, plan.Status, core.PlanStatusPending)
	}

	e.setStatus(ctx, plan, core.PlanStatusPlanning)

	tasks, err := e.planner.GeneratePlan(ctx, plan.Objective, plan.Metadata)
	if err != nil || len(tasks) == 0 {
		if err == nil {
			err = fmt.Errorf("planner returned no tasks")
		}
		e.logger.Error("engine.planning_failed", "plan_id", planID, "error", err.Error())
		e.setStatus(ctx, plan, core.PlanStatusFailed)
		return fmt.Errorf("generate plan %s: %w", planID, err)
	}

	plan.Tasks = e.applyTaskDefaults(tasks)
	e.setStatus(ctx, plan, core.PlanStatusExecuting)
	e.logger.Info("engine.plan_launched", "plan_id", planID, "tasks", len(plan.Tasks))

	return e.drive(ctx, planID)
}

// Resume re-enters the drive loop for an executing plan, e.g. after a
// process restart on top of a durable store. Resuming a plan that is not
// executing is a no-op.
func (e *Engine) Resume(ctx context.Context, planID string) error {
	if _, err := e.loadPlan(ctx, planID); err != nil {
		return err
	}
	return e.drive(ctx, planID)
}

// Approve resolves a task that is waiting for approval. An approved task
// becomes freshly eligible and is retried by the scheduler; a rejected task
// is recorded as failed and routed through the failure classifier, which
// may block the plan. Either way, execution resumes immediately.
func (e *Engine) Approve(ctx context.Context, planID, taskID string, decision core.ApprovalDecision) error {
	plan, err := e.loadPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Status.Terminal() {
		return fmt.Errorf("plan %s: %w", planID, core.ErrPlanTerminal)
	}
	task, ok := plan.Task(taskID)
	if !ok {
		return fmt.Errorf("plan %s task %s: %w", planID, taskID, core.ErrTaskNotFound)
	}

	state, err := e.loadState(ctx, planID)
	if err != nil {
		return err
	}
	if !state.IsWaitingApproval(taskID) {
		return fmt.Errorf("task %s is not awaiting approval", taskID)
	}

	e.logger.Info("engine.approval_decided",
		"plan_id", planID, "task_id", taskID, "approved", decision.Approved, "approver", decision.Approver)

	if plan.Status == core.PlanStatusBlocked {
		e.setStatus(ctx, plan, core.PlanStatusExecuting)
	}

	if decision.Approved {
		state.ClearResult(taskID)
		state.MarkApproved(taskID)
		if err := e.saveState(ctx, state); err != nil {
			return err
		}
		return e.drive(ctx, planID)
	}

	msg := fmt.Sprintf("rejected by %s", decision.Approver)
	if decision.Notes != "" {
		msg += ": " + decision.Notes
	}
	now := time.Now().UTC()
	result := core.TaskResult{
		TaskID:     taskID,
		Status:     core.TaskStatusFailed,
		StartedAt:  now,
		FinishedAt: now,
		Error:      msg,
	}
	state.MarkFailed(result)
	if err := e.saveState(ctx, state); err != nil {
		return err
	}
	e.hooks.taskFailed(planID, result)

	cont, err := e.handleFailure(ctx, planID, *task, result)
	if err != nil {
		return err
	}
	if !cont {
		return nil
	}
	return e.drive(ctx, planID)
}

// Cancel transitions a non-terminal plan to cancelled and interrupts any
// in-flight dispatch wait best-effort. Work already running inside a tool
// is not force-terminated.
func (e *Engine) Cancel(ctx context.Context, planID string) error {
	plan, err := e.loadPlan(ctx, planID)
	if err != nil {
		return err
	}
	if plan.Status.Terminal() {
		return fmt.Errorf("plan %s: %w", planID, core.ErrPlanTerminal)
	}

	e.setStatus(ctx, plan, core.PlanStatusCancelled)
	e.logger.Info("engine.plan_cancelled", "plan_id", planID)

	e.activeMu.Lock()
	if cancel, ok := e.active[planID]; ok {
		cancel()
	}
	e.activeMu.Unlock()
	return nil
}

// GetPlan returns the stored plan.
func (e *Engine) GetPlan(ctx context.Context, planID string) (*core.Plan, error) {
	return e.loadPlan(ctx, planID)
}

// GetState returns the stored execution state, including the synthesis
// result once the plan has completed.
func (e *Engine) GetState(ctx context.Context, planID string) (*core.ExecutionState, error) {
	return e.loadState(ctx, planID)
}

// setStatus persists a status transition and fires the status hook. Save
// errors are logged, not propagated: status transitions are best-effort
// snapshots and the caller's own save path surfaces persistent store
// failures.
func (e *Engine) setStatus(ctx context.Context, plan *core.Plan, status core.PlanStatus) {
	plan.SetStatus(status)
	if err := e.savePlan(ctx, plan); err != nil {
		e.logger.Error("engine.save_status_failed", "plan_id", plan.ID, "status", string(status), "error", err.Error())
		return
	}
	e.logger.Debug("engine.status", "plan_id", plan.ID, "status", string(status))
	e.hooks.statusChange(plan)
}

func (e *Engine) applyTaskDefaults(tasks []core.SubTask) []core.SubTask {
	out := make([]core.SubTask, len(tasks))
	copy(out, tasks)
	for i := range out {
		if out[i].Timeout <= 0 {
			out[i].Timeout = e.config.DefaultTimeout
		}
		if out[i].Retries < 0 {
			out[i].Retries = 0
		}
	}
	return out
}
