// Package planner provides the shared task-list contract for planning
// collaborators: the JSON wire format model-backed planners must produce,
// prompt builders, and parsing/validation helpers. Provider adapters live in
// the openai and anthropic subpackages; Static offers a deterministic
// planner for tests and fixed workflows.
package planner

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/planmesh/core"
)

// taskSpec is the JSON wire format for one generated task.
type taskSpec struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Tool             string         `json:"tool"`
	Input            map[string]any `json:"input,omitempty"`
	DependsOn        []string       `json:"depends_on,omitempty"`
	Retries          int            `json:"retries"`
	TimeoutSeconds   int            `json:"timeout_seconds"`
	RequiresApproval bool           `json:"requires_approval"`
}

// ParseTasks decodes a JSON task array produced by a planning model into
// SubTasks. Markdown code fences around the JSON are tolerated. The task
// list is validated: ids must be unique and every dependency must name a
// task in the same list.
func ParseTasks(raw string) ([]core.SubTask, error) {
	cleaned := stripFences(raw)

	var specs []taskSpec
	if err := json.Unmarshal([]byte(cleaned), &specs); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("planner returned an empty task list")
	}

	seen := make(map[string]bool, len(specs))
	tasks := make([]core.SubTask, 0, len(specs))
	for _, spec := range specs {
		if spec.ID == "" {
			return nil, fmt.Errorf("task with empty id")
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate task id %q", spec.ID)
		}
		seen[spec.ID] = true
		tasks = append(tasks, core.SubTask{
			ID:               spec.ID,
			Name:             spec.Name,
			ToolKind:         core.ToolKind(spec.Tool),
			Input:            spec.Input,
			DependsOn:        spec.DependsOn,
			Retries:          spec.Retries,
			Timeout:          time.Duration(spec.TimeoutSeconds) * time.Second,
			RequiresApproval: spec.RequiresApproval,
		})
	}

	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			if !seen[dep] {
				return nil, fmt.Errorf("task %q depends on unknown task %q", task.ID, dep)
			}
		}
	}
	return tasks, nil
}

// ParseSynthesis decodes the synthesis report JSON produced by a model.
func ParseSynthesis(raw string) (*core.SynthesisResult, error) {
	cleaned := stripFences(raw)
	var result core.SynthesisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("decode synthesis result: %w", err)
	}
	return &result, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// PlanPrompt builds the user prompt asking a model to decompose an objective
// into tasks. toolKinds lists the registered kinds the plan may target.
func PlanPrompt(objective string, metadata core.PlanMetadata, toolKinds []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", objective)
	if len(metadata.Constraints) > 0 {
		fmt.Fprintf(&b, "Constraints: %s\n", strings.Join(metadata.Constraints, "; "))
	}
	if len(metadata.Stakeholders) > 0 {
		fmt.Fprintf(&b, "Stakeholders: %s\n", strings.Join(metadata.Stakeholders, ", "))
	}
	if metadata.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", metadata.Deadline.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Available tool kinds: %s\n", strings.Join(toolKinds, ", "))
	b.WriteString("\nDecompose the objective into the smallest set of tasks that achieves it.\n")
	b.WriteString(taskContract)
	return b.String()
}

// ReplanPrompt builds the user prompt asking a model for a replacement task
// list after a failure.
func ReplanPrompt(plan *core.Plan, failingTaskID, cause string, retryCount int, toolKinds []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", plan.Objective)
	fmt.Fprintf(&b, "Task %q failed after %d retries with error: %s\n", failingTaskID, retryCount, cause)
	b.WriteString("Current task list:\n")
	encoded, _ := json.MarshalIndent(plan.Tasks, "", "  ")
	b.Write(encoded)
	fmt.Fprintf(&b, "\nAvailable tool kinds: %s\n", strings.Join(toolKinds, ", "))
	b.WriteString("\nProduce a replacement task list that works around the failure. ")
	b.WriteString("Keep the ids of tasks that should retain their prior results.\n")
	b.WriteString(taskContract)
	return b.String()
}

// SynthesisPrompt builds the user prompt asking a model to summarize the
// final execution state.
func SynthesisPrompt(plan *core.Plan, state *core.ExecutionState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Objective: %s\n", plan.Objective)
	progress := state.Progress(len(plan.Tasks))
	fmt.Fprintf(&b, "Tasks completed: %d/%d, failed: %d\n", progress.Completed, progress.Total, progress.Failed)
	b.WriteString("Task outputs:\n")
	encoded, _ := json.MarshalIndent(state.Outputs, "", "  ")
	b.Write(encoded)
	b.WriteString("\n\nRespond with a single JSON object:\n")
	b.WriteString(`{"summary": "...", "accomplishments": ["..."], "issues": ["..."], "recommendations": ["..."]}`)
	b.WriteString("\nRespond with JSON only, no prose.")
	return b.String()
}

const taskContract = `
Respond with a single JSON array, no prose. Each element:
{"id": "kebab-case-id", "name": "Human readable name", "tool": "<tool kind>",
 "input": {...}, "depends_on": ["other-id"], "retries": 2,
 "timeout_seconds": 30, "requires_approval": false}
Input values may reference prior outputs as "{{task-id.field.path}}".
Set requires_approval true for irreversible or sensitive actions.`

// SystemPrompt is the shared system instruction for planning models.
const SystemPrompt = "You are a planning engine that decomposes objectives " +
	"into dependency-linked task lists for automatic execution. You respond " +
	"with machine-readable JSON only."
