package core

import (
	"time"
)

// TaskStatus is the terminal (or suspended) status of a single task attempt
// sequence as recorded in ExecutionState.
type TaskStatus string

const (
	// TaskStatusCompleted marks a task whose tool execution succeeded.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed marks a task whose retry budget was exhausted or that
	// was rejected by an approver.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusWaitingApproval marks a task suspended pending an external
	// yes/no decision. It counts as neither completed nor failed.
	TaskStatusWaitingApproval TaskStatus = "waiting-approval"
)

// TaskResult captures the outcome of dispatching one task.
type TaskResult struct {
	TaskID       string        `json:"task_id"`
	Status       TaskStatus    `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Output       any           `json:"output,omitempty"`
	Error        string        `json:"error,omitempty"`
	RetryAttempt int           `json:"retry_attempt"`
	Duration     time.Duration `json:"duration"`
}

// Blocker records why a task could not proceed at a point in time.
type Blocker struct {
	TaskID    string    `json:"task_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is a point-in-time snapshot of set sizes, used for status queries
// and escalation records.
type Progress struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// SynthesisResult is the report produced by the synthesis collaborator once
// every task has completed.
type SynthesisResult struct {
	Summary         string   `json:"summary"`
	Accomplishments []string `json:"accomplishments,omitempty"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ExecutionState tracks a plan's progress. One state record exists per plan.
//
// Invariant: a task id appears in at most one of {Completed, Failed} at any
// time; a task whose result status is waiting-approval appears in neither
// until the decision resolves it.
//
// Outputs holds each completed task's raw output, consumed by downstream
// tasks via reference resolution.
type ExecutionState struct {
	PlanID    string                `json:"plan_id"`
	Results   map[string]TaskResult `json:"results"`
	Completed map[string]bool       `json:"completed"`
	Failed    map[string]bool       `json:"failed"`
	// Approvals holds task ids whose approval requirement was satisfied by
	// an external decision; the gate does not suspend them again.
	Approvals map[string]bool  `json:"approvals,omitempty"`
	Blockers  []Blocker        `json:"blockers,omitempty"`
	Outputs   map[string]any   `json:"outputs"`
	Synthesis *SynthesisResult `json:"synthesis,omitempty"`
}

// NewExecutionState constructs an empty state for the given plan.
func NewExecutionState(planID string) *ExecutionState {
	return &ExecutionState{
		PlanID:    planID,
		Results:   make(map[string]TaskResult),
		Completed: make(map[string]bool),
		Failed:    make(map[string]bool),
		Outputs:   make(map[string]any),
	}
}

// MarkCompleted records a successful result, moving the task into the
// completed set and exposing its output to downstream tasks.
func (s *ExecutionState) MarkCompleted(res TaskResult) {
	res.Status = TaskStatusCompleted
	s.Results[res.TaskID] = res
	s.Completed[res.TaskID] = true
	delete(s.Failed, res.TaskID)
	s.Outputs[res.TaskID] = res.Output
}

// MarkFailed records a terminal failure, moving the task into the failed set.
func (s *ExecutionState) MarkFailed(res TaskResult) {
	res.Status = TaskStatusFailed
	s.Results[res.TaskID] = res
	s.Failed[res.TaskID] = true
	delete(s.Completed, res.TaskID)
}

// MarkWaitingApproval suspends a task pending an external decision. The task
// is excluded from both sets until resolved.
func (s *ExecutionState) MarkWaitingApproval(taskID string) {
	s.Results[taskID] = TaskResult{
		TaskID:    taskID,
		Status:    TaskStatusWaitingApproval,
		StartedAt: time.Now().UTC(),
	}
	delete(s.Completed, taskID)
	delete(s.Failed, taskID)
}

// ClearResult removes every trace of a task's result so the scheduler treats
// it as freshly eligible. Used when an approval is granted.
func (s *ExecutionState) ClearResult(taskID string) {
	delete(s.Results, taskID)
	delete(s.Completed, taskID)
	delete(s.Failed, taskID)
}

// MarkApproved records a granted approval so the gate lets the task run.
func (s *ExecutionState) MarkApproved(taskID string) {
	if s.Approvals == nil {
		s.Approvals = make(map[string]bool)
	}
	s.Approvals[taskID] = true
}

// IsApproved reports whether the task's approval requirement was satisfied.
func (s *ExecutionState) IsApproved(taskID string) bool { return s.Approvals[taskID] }

// Forgive removes a task from the failed set and drops its failed result,
// used when re-planning replaces the task list.
func (s *ExecutionState) Forgive(taskID string) {
	delete(s.Failed, taskID)
	delete(s.Results, taskID)
}

// IsCompleted reports whether the task id is in the completed set.
func (s *ExecutionState) IsCompleted(taskID string) bool { return s.Completed[taskID] }

// IsFailed reports whether the task id is in the failed set.
func (s *ExecutionState) IsFailed(taskID string) bool { return s.Failed[taskID] }

// IsWaitingApproval reports whether the task is suspended pending a decision.
func (s *ExecutionState) IsWaitingApproval(taskID string) bool {
	res, ok := s.Results[taskID]
	return ok && res.Status == TaskStatusWaitingApproval
}

// AddBlocker appends a blocker record for the given task.
func (s *ExecutionState) AddBlocker(taskID, reason string) {
	s.Blockers = append(s.Blockers, Blocker{
		TaskID:    taskID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

// PruneTo drops results, set membership and outputs for any task id absent
// from keep. Already-completed ids present in keep retain their results, so
// re-planning never loses prior progress for surviving tasks.
func (s *ExecutionState) PruneTo(keep map[string]bool) {
	for id := range s.Results {
		if !keep[id] {
			delete(s.Results, id)
		}
	}
	for id := range s.Completed {
		if !keep[id] {
			delete(s.Completed, id)
		}
	}
	for id := range s.Failed {
		if !keep[id] {
			delete(s.Failed, id)
		}
	}
	for id := range s.Outputs {
		if !keep[id] {
			delete(s.Outputs, id)
		}
	}
	for id := range s.Approvals {
		if !keep[id] {
			delete(s.Approvals, id)
		}
	}
}

// Progress returns current set sizes against the given task total.
func (s *ExecutionState) Progress(total int) Progress {
	return Progress{
		Completed: len(s.Completed),
		Failed:    len(s.Failed),
		Total:     total,
	}
}
