package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/internal/testutil"
	"github.com/hupe1980/planmesh/store"
	"github.com/hupe1980/planmesh/tool"
)

func fastConfig() Config {
	return Config{
		BackoffBase:    time.Millisecond,
		DefaultTimeout: time.Second,
		MaxFailedTasks: 3,
	}
}

// succeedTool returns a tool for kind "test" that records its inputs and
// succeeds with a fixed output per task id.
func succeedTool(seen map[string]map[string]any, outputs map[string]any) tool.Tool {
	return tool.NewFunc("test", "scripted success",
		func(_ context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
			if id, ok := input["task_id"].(string); ok && seen != nil {
				seen[id] = input
				if out, ok := outputs[id]; ok {
					return out, nil
				}
			}
			return "ok", nil
		})
}

func launchPlan(t *testing.T, e *Engine) *core.Plan {
	t.Helper()
	plan, err := e.CreatePlan(context.Background(), "test objective", core.PlanMetadata{})
	require.NoError(t, err)
	require.NoError(t, e.Launch(context.Background(), plan.ID))
	return plan
}

func TestEngineCompletesLinearPlan(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("a").Input("task_id", "a").Build(),
		testutil.NewTaskBuilder("b").Input("task_id", "b").DependsOn("a").Build(),
		testutil.NewTaskBuilder("c").Input("task_id", "c").DependsOn("b").Build(),
	}
	notifier := &testutil.RecordingNotifier{}
	synth := &testutil.StubSynthesizer{Summary: "all done"}

	var completedOrder []string
	e := New(testutil.NewScriptPlanner(tasks), synth, func(o *Options) {
		o.Config = fastConfig()
		o.Notifier = notifier
		o.Hooks = Hooks{
			OnTaskCompleted: func(planID string, result core.TaskResult) {
				completedOrder = append(completedOrder, result.TaskID)
			},
		}
	})
	e.RegisterTool(succeedTool(nil, nil))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, completedOrder)
	require.NotNil(t, state.Synthesis)
	assert.Equal(t, "all done", state.Synthesis.Summary)
	assert.Equal(t, 1, synth.Calls)

	// Completion delivery is detached from the drive loop.
	require.Eventually(t, func() bool {
		for _, n := range notifier.Received() {
			if n.Kind == core.NotificationKindCompletion {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestEnginePassesOutputsBetweenTasks(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("fetch").Input("task_id", "fetch").Build(),
		testutil.NewTaskBuilder("use").
			Input("task_id", "use").
			Input("user_id", "{{fetch.user.id}}").
			DependsOn("fetch").
			Build(),
	}

	seen := map[string]map[string]any{}
	outputs := map[string]any{"fetch": map[string]any{"user": map[string]any{"id": 42}}}

	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(succeedTool(seen, outputs))

	launchPlan(t, e)

	require.Contains(t, seen, "use")
	assert.Equal(t, float64(42), seen["use"]["user_id"])
}

func TestEngineBlocksOnUnrecoverableFailure(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("a").Build(),
		testutil.NewTaskBuilder("b").DependsOn("a").Build(),
	}
	notifier := &testutil.RecordingNotifier{}

	// A single-entry script: the replan request after the failure errors,
	// which downgrades to escalation.
	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
		o.Notifier = notifier
	})
	e.RegisterTool(tool.NewFunc("test", "always fails",
		func(_ context.Context, _ *core.ExecutionContext, _ map[string]any) (any, error) {
			return nil, fmt.Errorf("boom")
		}))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusBlocked, got.Status)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.True(t, state.IsFailed("a"))
	require.NotEmpty(t, state.Blockers)

	escalations, err := e.ListEscalations(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, escalations, 1)
	assert.Equal(t, plan.ID, escalations[0].PlanID)

	require.Eventually(t, func() bool {
		return len(notifier.Escalations()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEngineEscalatesAuthorizationFailures(t *testing.T) {
	tasks := []core.SubTask{testutil.NewTaskBuilder("a").Build()}

	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(tool.NewFunc("test", "denied",
		func(_ context.Context, _ *core.ExecutionContext, _ map[string]any) (any, error) {
			return nil, fmt.Errorf("403 Forbidden")
		}))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusBlocked, got.Status)

	escalations, err := e.ListEscalations(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, escalations, 1)
	assert.Contains(t, escalations[0].Reason, "requires intervention")
}

func TestEngineReplansAroundTransientFailure(t *testing.T) {
	initial := []core.SubTask{
		testutil.NewTaskBuilder("good").Input("task_id", "good").Build(),
		testutil.NewTaskBuilder("flaky").Input("task_id", "flaky").DependsOn("good").Build(),
	}
	fallback := []core.SubTask{
		testutil.NewTaskBuilder("good").Input("task_id", "good").Build(),
		testutil.NewTaskBuilder("detour").Input("task_id", "detour").DependsOn("good").Build(),
	}
	planner := testutil.NewScriptPlanner(initial, fallback)

	seen := map[string]map[string]any{}
	e := New(planner, &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(tool.NewFunc("test", "flaky source",
		func(_ context.Context, execCtx *core.ExecutionContext, input map[string]any) (any, error) {
			id, _ := input["task_id"].(string)
			seen[id] = input
			if id == "flaky" {
				return nil, fmt.Errorf("connection refused")
			}
			return "ok", nil
		}))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCompleted, got.Status)
	assert.Equal(t, 1, planner.ReplanCalls)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.True(t, state.IsCompleted("good"))
	assert.True(t, state.IsCompleted("detour"))
	assert.False(t, state.IsFailed("flaky"))

	// "good" completed before the replan and was not re-executed: the tool
	// saw it exactly once.
	assert.Contains(t, seen, "good")
	assert.Contains(t, seen, "detour")
}

func TestEngineApprovalFlow(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("a").Build(),
		testutil.NewTaskBuilder("deploy").DependsOn("a").RequiresApproval().Build(),
	}

	newEngine := func() *Engine {
		e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
			o.Config = fastConfig()
		})
		e.RegisterTool(succeedTool(nil, nil))
		return e
	}

	t.Run("suspends until approved", func(t *testing.T) {
		e := newEngine()
		plan := launchPlan(t, e)

		got, err := e.GetPlan(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.Equal(t, core.PlanStatusExecuting, got.Status)

		state, err := e.GetState(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.True(t, state.IsWaitingApproval("deploy"))

		err = e.Approve(context.Background(), plan.ID, "deploy", core.ApprovalDecision{Approved: true, Approver: "ops"})
		require.NoError(t, err)

		got, err = e.GetPlan(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.Equal(t, core.PlanStatusCompleted, got.Status)

		state, err = e.GetState(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.True(t, state.IsCompleted("deploy"))
	})

	t.Run("rejection blocks the plan", func(t *testing.T) {
		e := newEngine()
		plan := launchPlan(t, e)

		err := e.Approve(context.Background(), plan.ID, "deploy", core.ApprovalDecision{
			Approved: false, Approver: "ops", Notes: "not during the freeze",
		})
		require.NoError(t, err)

		got, err := e.GetPlan(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.Equal(t, core.PlanStatusBlocked, got.Status)

		state, err := e.GetState(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.True(t, state.IsFailed("deploy"))
		require.Contains(t, state.Results, "deploy")
		assert.Contains(t, state.Results["deploy"].Error, "rejected by ops")
		assert.Contains(t, state.Results["deploy"].Error, "not during the freeze")
	})

	t.Run("approve validates task and status", func(t *testing.T) {
		e := newEngine()
		plan := launchPlan(t, e)

		err := e.Approve(context.Background(), plan.ID, "ghost", core.ApprovalDecision{Approved: true})
		assert.ErrorIs(t, err, core.ErrTaskNotFound)

		err = e.Approve(context.Background(), plan.ID, "a", core.ApprovalDecision{Approved: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not awaiting approval")
	})
}

func TestEngineSelfApprovingGateBypassesApproval(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("gate").
			Tool(core.ToolKindApprovalGate).
			RequiresApproval().
			Input("approver", "release-bot").
			Build(),
	}

	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(tool.NewApprovalGate())

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCompleted, got.Status)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	output := state.Outputs["gate"].(map[string]any)
	assert.Equal(t, true, output["approved"])
	assert.Equal(t, "release-bot", output["approver"])
}

func TestEngineCancel(t *testing.T) {
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("a").RequiresApproval().Build(),
	}

	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(succeedTool(nil, nil))

	plan := launchPlan(t, e)
	require.NoError(t, e.Cancel(context.Background(), plan.ID))

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCancelled, got.Status)

	// Terminal plans reject further lifecycle operations.
	err = e.Cancel(context.Background(), plan.ID)
	assert.ErrorIs(t, err, core.ErrPlanTerminal)
	err = e.Approve(context.Background(), plan.ID, "a", core.ApprovalDecision{Approved: true})
	assert.ErrorIs(t, err, core.ErrPlanTerminal)
}

func TestEngineCancelInterruptsDispatch(t *testing.T) {
	tasks := []core.SubTask{testutil.NewTaskBuilder("slow").Build()}
	planner := testutil.NewScriptPlanner(tasks)

	e := New(planner, &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	started := make(chan struct{}, 1)
	e.RegisterTool(tool.NewFunc("test", "long running",
		func(ctx context.Context, _ *core.ExecutionContext, _ map[string]any) (any, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-ctx.Done()
			return nil, ctx.Err()
		}))

	plan, err := e.CreatePlan(context.Background(), "test objective", core.PlanMetadata{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Launch(context.Background(), plan.ID) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("dispatch never started")
	}
	require.NoError(t, e.Cancel(context.Background(), plan.ID))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("drive loop did not stop after cancel")
	}

	// The interrupted attempt leaves no trace: the plan stays cancelled and
	// the discarded result triggers no failure handling.
	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCancelled, got.Status)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.False(t, state.IsFailed("slow"))
	assert.Empty(t, state.Blockers)
	assert.Zero(t, planner.ReplanCalls)

	escalations, err := e.ListEscalations(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Empty(t, escalations)
}

func TestEngineResumeAfterRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "planmesh.db")
	tasks := []core.SubTask{
		testutil.NewTaskBuilder("a").Input("task_id", "a").Build(),
		testutil.NewTaskBuilder("b").Input("task_id", "b").DependsOn("a").Build(),
		testutil.NewTaskBuilder("c").Input("task_id", "c").DependsOn("b").Build(),
	}

	// First process: persist a plan interrupted mid-execution, with "a"
	// already completed and "b" never dispatched.
	st, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	e1 := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
		o.Store = st
	})
	plan, err := e1.CreatePlan(context.Background(), "test objective", core.PlanMetadata{})
	require.NoError(t, err)
	plan.Tasks = e1.applyTaskDefaults(tasks)
	plan.SetStatus(core.PlanStatusExecuting)
	require.NoError(t, e1.savePlan(context.Background(), plan))

	state, err := e1.loadState(context.Background(), plan.ID)
	require.NoError(t, err)
	state.MarkCompleted(testutil.CompletedResult("a", "ok"))
	require.NoError(t, e1.saveState(context.Background(), state))
	require.NoError(t, st.Close())

	// Second process: a fresh engine over the same database picks the plan
	// back up and runs only the remaining tasks.
	st2, err := store.OpenSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })

	seen := map[string]map[string]any{}
	e2 := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{Summary: "done"}, func(o *Options) {
		o.Config = fastConfig()
		o.Store = st2
	})
	e2.RegisterTool(succeedTool(seen, nil))
	require.NoError(t, e2.Resume(context.Background(), plan.ID))

	got, err := e2.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCompleted, got.Status)

	state, err = e2.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.True(t, state.IsCompleted("a"))
	assert.True(t, state.IsCompleted("b"))
	assert.True(t, state.IsCompleted("c"))
	require.NotNil(t, state.Synthesis)

	// Completed work is not re-executed after the restart.
	assert.NotContains(t, seen, "a")
	assert.Contains(t, seen, "b")
	assert.Contains(t, seen, "c")

	// Resuming the now-completed plan is a no-op.
	require.NoError(t, e2.Resume(context.Background(), plan.ID))
}

func TestEngineLaunchValidation(t *testing.T) {
	t.Run("unknown plan", func(t *testing.T) {
		e := New(testutil.NewScriptPlanner(), &testutil.StubSynthesizer{})
		err := e.Launch(context.Background(), "ghost")
		assert.ErrorIs(t, err, core.ErrPlanNotFound)
	})

	t.Run("planner failure fails the plan", func(t *testing.T) {
		e := New(testutil.NewScriptPlanner(), &testutil.StubSynthesizer{}, func(o *Options) {
			o.Config = fastConfig()
		})

		plan, err := e.CreatePlan(context.Background(), "objective", core.PlanMetadata{})
		require.NoError(t, err)
		err = e.Launch(context.Background(), plan.ID)
		require.Error(t, err)

		got, err := e.GetPlan(context.Background(), plan.ID)
		require.NoError(t, err)
		assert.Equal(t, core.PlanStatusFailed, got.Status)
	})

	t.Run("launch twice", func(t *testing.T) {
		tasks := []core.SubTask{testutil.NewTaskBuilder("a").Build()}
		e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
			o.Config = fastConfig()
		})
		e.RegisterTool(succeedTool(nil, nil))

		plan := launchPlan(t, e)
		err := e.Launch(context.Background(), plan.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected pending")
	})
}

func TestEngineSynthesisFailureStillCompletes(t *testing.T) {
	tasks := []core.SubTask{testutil.NewTaskBuilder("a").Build()}
	synth := &testutil.StubSynthesizer{Err: fmt.Errorf("model unavailable")}

	e := New(testutil.NewScriptPlanner(tasks), synth, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(succeedTool(nil, nil))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PlanStatusCompleted, got.Status)

	state, err := e.GetState(context.Background(), plan.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Synthesis)
	require.Len(t, state.Synthesis.Issues, 1)
	assert.Contains(t, state.Synthesis.Issues[0], "model unavailable")
}

func TestEngineTaskDefaults(t *testing.T) {
	tasks := []core.SubTask{
		{ID: "a", ToolKind: "test", Retries: -1},
	}

	e := New(testutil.NewScriptPlanner(tasks), &testutil.StubSynthesizer{}, func(o *Options) {
		o.Config = fastConfig()
	})
	e.RegisterTool(succeedTool(nil, nil))

	plan := launchPlan(t, e)

	got, err := e.GetPlan(context.Background(), plan.ID)
	require.NoError(t, err)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, 0, got.Tasks[0].Retries)
	assert.Equal(t, fastConfig().DefaultTimeout, got.Tasks[0].Timeout)
}
