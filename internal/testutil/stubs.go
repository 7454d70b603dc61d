package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/planmesh/core"
)

// ScriptPlanner is a core.Planner returning pre-scripted task lists. The
// first GeneratePlan call returns Script[0]; each Replan call returns the
// next entry. Calls beyond the script return an error, which makes runaway
// re-planning loops fail tests loudly.
type ScriptPlanner struct {
	Script [][]core.SubTask

	mu          sync.Mutex
	cursor      int
	ReplanCalls int
}

var _ core.Planner = (*ScriptPlanner)(nil)

// NewScriptPlanner creates a planner whose successive planning calls return
// the given task lists in order.
func NewScriptPlanner(script ...[]core.SubTask) *ScriptPlanner {
	return &ScriptPlanner{Script: script}
}

func (p *ScriptPlanner) next() ([]core.SubTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor >= len(p.Script) {
		return nil, fmt.Errorf("planner script exhausted after %d calls", p.cursor)
	}
	tasks := p.Script[p.cursor]
	p.cursor++
	return tasks, nil
}

// GeneratePlan returns the next scripted task list.
func (p *ScriptPlanner) GeneratePlan(_ context.Context, _ string, _ core.PlanMetadata) ([]core.SubTask, error) {
	return p.next()
}

// Replan returns the next scripted task list and counts the call.
func (p *ScriptPlanner) Replan(_ context.Context, _ *core.Plan, _, _ string, _ int) ([]core.SubTask, error) {
	p.mu.Lock()
	p.ReplanCalls++
	p.mu.Unlock()
	return p.next()
}

// StubSynthesizer is a core.Synthesizer returning a fixed summary, or Err
// when set.
type StubSynthesizer struct {
	Summary string
	Err     error

	mu    sync.Mutex
	Calls int
}

var _ core.Synthesizer = (*StubSynthesizer)(nil)

// Synthesize returns the stubbed result.
func (s *StubSynthesizer) Synthesize(_ context.Context, plan *core.Plan, state *core.ExecutionState) (*core.SynthesisResult, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	summary := s.Summary
	if summary == "" {
		summary = fmt.Sprintf("completed %d of %d tasks", len(state.Completed), len(plan.Tasks))
	}
	return &core.SynthesisResult{Summary: summary}, nil
}

// RecordingNotifier is a core.Notifier capturing every delivered record for
// later assertions.
type RecordingNotifier struct {
	mu       sync.Mutex
	received []core.Notification
}

var _ core.Notifier = (*RecordingNotifier)(nil)

// Deliver records the notification.
func (n *RecordingNotifier) Deliver(_ context.Context, notification core.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, notification)
	return nil
}

// Received returns a copy of all recorded notifications.
func (n *RecordingNotifier) Received() []core.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]core.Notification, len(n.received))
	copy(out, n.received)
	return out
}

// Escalations returns the recorded escalation notifications only.
func (n *RecordingNotifier) Escalations() []core.Notification {
	var out []core.Notification
	for _, rec := range n.Received() {
		if rec.Kind == core.NotificationKindEscalation {
			out = append(out, rec)
		}
	}
	return out
}
