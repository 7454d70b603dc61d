package planner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planmesh/core"
)

func TestParseTasks(t *testing.T) {
	raw := `[
		{"id": "fetch", "name": "Fetch data", "tool": "http-call",
		 "input": {"url": "https://example.com"}, "retries": 2, "timeout_seconds": 15},
		{"id": "report", "name": "Send report", "tool": "messaging",
		 "depends_on": ["fetch"], "requires_approval": true}
	]`

	tasks, err := ParseTasks(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "fetch", tasks[0].ID)
	assert.Equal(t, core.ToolKindHTTPCall, tasks[0].ToolKind)
	assert.Equal(t, 2, tasks[0].Retries)
	assert.Equal(t, 15*time.Second, tasks[0].Timeout)
	assert.Equal(t, "https://example.com", tasks[0].Input["url"])

	assert.Equal(t, []string{"fetch"}, tasks[1].DependsOn)
	assert.True(t, tasks[1].RequiresApproval)
}

func TestParseTasksStripsCodeFences(t *testing.T) {
	raw := "```json\n[{\"id\": \"a\", \"name\": \"A\", \"tool\": \"delay\"}]\n```"

	tasks, err := ParseTasks(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a", tasks[0].ID)
}

func TestParseTasksValidation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "not json",
			raw:     "sure, here is your plan:",
			wantErr: "decode task list",
		},
		{
			name:    "empty list",
			raw:     "[]",
			wantErr: "empty task list",
		},
		{
			name:    "empty id",
			raw:     `[{"id": "", "tool": "delay"}]`,
			wantErr: "empty id",
		},
		{
			name:    "duplicate id",
			raw:     `[{"id": "a", "tool": "delay"}, {"id": "a", "tool": "delay"}]`,
			wantErr: `duplicate task id "a"`,
		},
		{
			name:    "unknown dependency",
			raw:     `[{"id": "a", "tool": "delay", "depends_on": ["ghost"]}]`,
			wantErr: `unknown task "ghost"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTasks(tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSynthesis(t *testing.T) {
	raw := "```json\n{\"summary\": \"done\", \"issues\": [\"one flaky call\"]}\n```"

	result, err := ParseSynthesis(raw)
	require.NoError(t, err)
	assert.Equal(t, "done", result.Summary)
	assert.Equal(t, []string{"one flaky call"}, result.Issues)
}

func TestPlanPromptIncludesMetadata(t *testing.T) {
	deadline := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	prompt := PlanPrompt("ship it", core.PlanMetadata{
		Constraints:  []string{"budget under 100"},
		Stakeholders: []string{"ops"},
		Deadline:     &deadline,
	}, []string{"http-call", "delay"})

	assert.Contains(t, prompt, "Objective: ship it")
	assert.Contains(t, prompt, "budget under 100")
	assert.Contains(t, prompt, "ops")
	assert.Contains(t, prompt, "2026-10-01T12:00:00Z")
	assert.Contains(t, prompt, "http-call, delay")
	assert.Contains(t, prompt, "requires_approval")
}

func TestReplanPromptIncludesFailure(t *testing.T) {
	plan := core.NewPlan("ship it", core.PlanMetadata{})
	plan.Tasks = []core.SubTask{{ID: "a", ToolKind: "delay"}}

	prompt := ReplanPrompt(plan, "a", "connection refused", 2, []string{"delay"})

	assert.Contains(t, prompt, `Task "a" failed after 2 retries`)
	assert.Contains(t, prompt, "connection refused")
	assert.Contains(t, prompt, "replacement task list")
}

func TestStaticPlanner(t *testing.T) {
	tasks := []core.SubTask{{ID: "a", ToolKind: "delay"}}

	t.Run("fixed plan", func(t *testing.T) {
		p := NewStatic(tasks)
		got, err := p.GeneratePlan(context.Background(), "objective", core.PlanMetadata{})
		require.NoError(t, err)
		assert.Equal(t, tasks, got)
	})

	t.Run("replan without hook errors", func(t *testing.T) {
		p := NewStatic(tasks)
		_, err := p.Replan(context.Background(), core.NewPlan("o", core.PlanMetadata{}), "a", "boom", 1)
		require.Error(t, err)
	})

	t.Run("replan hook", func(t *testing.T) {
		fallback := []core.SubTask{{ID: "b", ToolKind: "delay"}}
		p := NewStatic(tasks, func(o *StaticOptions) {
			o.ReplanFn = func(_ context.Context, _ *core.Plan, failingTaskID, cause string, retryCount int) ([]core.SubTask, error) {
				if failingTaskID != "a" {
					return nil, fmt.Errorf("unexpected failing task %s", failingTaskID)
				}
				return fallback, nil
			}
		})
		got, err := p.Replan(context.Background(), core.NewPlan("o", core.PlanMetadata{}), "a", "boom", 1)
		require.NoError(t, err)
		assert.Equal(t, fallback, got)
	})
}
