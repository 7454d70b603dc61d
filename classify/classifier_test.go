package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/planmesh/core"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := New()

	tests := []struct {
		name        string
		failure     Failure
		wantOutcome Outcome
		wantRule    string
	}{
		{
			name:        "timeout is transient",
			failure:     Failure{Error: "task fetch timed out after 30s"},
			wantOutcome: OutcomeReplan,
			wantRule:    "transient-error",
		},
		{
			name:        "rate limit is transient",
			failure:     Failure{Error: "429: Rate Limit exceeded"},
			wantOutcome: OutcomeReplan,
			wantRule:    "transient-error",
		},
		{
			name:        "authorization escalates",
			failure:     Failure{Error: "403 Forbidden"},
			wantOutcome: OutcomeEscalate,
			wantRule:    "authorization-required",
		},
		{
			name:        "approval-required task escalates",
			failure:     Failure{Task: core.SubTask{RequiresApproval: true}, Error: "rejected by ops"},
			wantOutcome: OutcomeEscalate,
			wantRule:    "authorization-required",
		},
		{
			name:        "failure ceiling escalates",
			failure:     Failure{Error: "something broke", FailedCount: 3},
			wantOutcome: OutcomeEscalate,
			wantRule:    "failure-ceiling",
		},
		{
			name:        "unknown failure replans optimistically",
			failure:     Failure{Error: "something broke", FailedCount: 1},
			wantOutcome: OutcomeReplan,
			wantRule:    "default-optimistic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := c.Classify(tt.failure)
			assert.Equal(t, tt.wantOutcome, decision.Outcome)
			assert.Equal(t, tt.wantRule, decision.Rule)
		})
	}
}

func TestClassifyOrderMatters(t *testing.T) {
	c := New()

	// An error that is both transient and over the ceiling: the transient
	// rule is declared first and wins.
	decision := c.Classify(Failure{Error: "connection reset by peer", FailedCount: 10})
	assert.Equal(t, OutcomeReplan, decision.Outcome)
	assert.Equal(t, "transient-error", decision.Rule)

	// Authorization beats the ceiling for the same reason.
	decision = c.Classify(Failure{Error: "permission denied", FailedCount: 10})
	assert.Equal(t, OutcomeEscalate, decision.Outcome)
	assert.Equal(t, "authorization-required", decision.Rule)
}

func TestClassifyCustomCeiling(t *testing.T) {
	c := New(func(o *Options) { o.MaxFailedTasks = 1 })

	decision := c.Classify(Failure{Error: "something broke", FailedCount: 1})
	assert.Equal(t, OutcomeEscalate, decision.Outcome)
	assert.Equal(t, "failure-ceiling", decision.Rule)
}

func TestClassifyCustomRules(t *testing.T) {
	c := New(func(o *Options) {
		o.Rules = []Rule{
			{Name: "always-fail", Match: func(f Failure) bool { return f.Error == "fatal" }, Outcome: OutcomeTerminal},
		}
	})

	decision := c.Classify(Failure{Error: "fatal"})
	assert.Equal(t, OutcomeTerminal, decision.Outcome)
	assert.Equal(t, "always-fail", decision.Rule)

	// A custom table with no match falls through to terminal.
	decision = c.Classify(Failure{Error: "other"})
	assert.Equal(t, OutcomeTerminal, decision.Outcome)
	assert.Equal(t, "unmatched", decision.Rule)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "replan", OutcomeReplan.String())
	assert.Equal(t, "escalate", OutcomeEscalate.String())
	assert.Equal(t, "terminal", OutcomeTerminal.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
