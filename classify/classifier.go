// Package classify implements rule-based failure classification. Once a
// task's retries are exhausted, the classifier inspects the failure and the
// plan's failure history and decides whether to re-plan, escalate to a
// human, or fail the plan terminally.
//
// Classification is a prioritized decision table: an ordered list of
// predicate→outcome rules evaluated first match wins, so new rules can be
// inserted without restructuring control flow.
package classify

import (
	"strings"

	"github.com/hupe1980/planmesh/core"
)

// Outcome is the classifier's routing decision for a terminal task failure.
type Outcome int

const (
	// OutcomeReplan routes the failure to the external planning collaborator
	// for an alternative task set.
	OutcomeReplan Outcome = iota
	// OutcomeEscalate raises an escalation and blocks the plan for human
	// intervention.
	OutcomeEscalate
	// OutcomeTerminal fails the whole plan permanently.
	OutcomeTerminal
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeReplan:
		return "replan"
	case OutcomeEscalate:
		return "escalate"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Failure describes one terminal task failure presented for classification.
type Failure struct {
	// Task is the failing task.
	Task core.SubTask
	// Error is the last error message recorded by the dispatcher.
	Error string
	// FailedCount is the plan's cumulative failed-task count including this
	// failure.
	FailedCount int
	// RetryAttempt is the attempt counter recorded on the failing result.
	RetryAttempt int
}

// Rule pairs a predicate with an outcome. Rules are evaluated in order;
// the first match wins.
type Rule struct {
	Name    string
	Match   func(f Failure) bool
	Outcome Outcome
}

// Decision is the classification result: the chosen outcome and the name of
// the rule that produced it.
type Decision struct {
	Outcome Outcome
	Rule    string
}

// Classifier evaluates an ordered rule table. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// Options configures a Classifier.
type Options struct {
	// MaxFailedTasks is the cumulative failed-task ceiling above which
	// failures escalate instead of re-planning. Defaults to 3.
	MaxFailedTasks int
	// Rules overrides the default rule table entirely when non-nil.
	Rules []Rule
}

// New constructs a Classifier with the default rule table unless overridden.
func New(optFns ...func(o *Options)) *Classifier {
	opts := Options{MaxFailedTasks: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules(opts.MaxFailedTasks)
	}
	return &Classifier{rules: rules}
}

// Classify evaluates the rule table against the failure. The default table
// always matches; with a custom table that matches nothing the outcome is
// terminal.
func (c *Classifier) Classify(f Failure) Decision {
	for _, r := range c.rules {
		if r.Match(f) {
			return Decision{Outcome: r.Outcome, Rule: r.Name}
		}
	}
	return Decision{Outcome: OutcomeTerminal, Rule: "unmatched"}
}

// transientMarkers is the transient-failure vocabulary. Matching errors are
// considered recoverable via re-planning.
var transientMarkers = []string{
	"timed out",
	"timeout",
	"rate limit",
	"rate-limit",
	"temporarily unavailable",
	"connection reset",
	"connection refused",
}

// authMarkers is the authorization-failure vocabulary. Matching errors
// require human intervention.
var authMarkers = []string{
	"unauthorized",
	"forbidden",
	"permission denied",
	"access denied",
	"not authorized",
}

func containsAny(s string, markers []string) bool {
	s = strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// DefaultRules returns the standard ordered rule table:
//
//  1. transient-failure vocabulary        → re-plan
//  2. authorization failure or a task
//     that requires approval             → escalate
//  3. cumulative failed-task ceiling      → escalate
//  4. default                            → re-plan (optimistic policy)
func DefaultRules(maxFailedTasks int) []Rule {
	return []Rule{
		{
			Name:    "transient-error",
			Match:   func(f Failure) bool { return containsAny(f.Error, transientMarkers) },
			Outcome: OutcomeReplan,
		},
		{
			Name: "authorization-required",
			Match: func(f Failure) bool {
				return containsAny(f.Error, authMarkers) || f.Task.RequiresApproval
			},
			Outcome: OutcomeEscalate,
		},
		{
			Name:    "failure-ceiling",
			Match:   func(f Failure) bool { return f.FailedCount >= maxFailedTasks },
			Outcome: OutcomeEscalate,
		},
		{
			Name:    "default-optimistic",
			Match:   func(Failure) bool { return true },
			Outcome: OutcomeReplan,
		},
	}
}
