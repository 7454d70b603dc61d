package core

import (
	"context"
)

// Planner is the external planning collaborator. It turns an objective into
// an ordered task list and, on failure, proposes a replacement task list.
// Implementations are treated as black boxes; the engine only relies on the
// returned tasks forming a valid dependency graph.
type Planner interface {
	// GeneratePlan decomposes an objective into dependency-linked tasks.
	GeneratePlan(ctx context.Context, objective string, metadata PlanMetadata) ([]SubTask, error)

	// Replan proposes an alternative task list after failingTaskID failed
	// with the given cause. retryCount is the attempt counter recorded on
	// the failing result.
	Replan(ctx context.Context, plan *Plan, failingTaskID, cause string, retryCount int) ([]SubTask, error)
}

// Synthesizer is the external synthesis collaborator turning final execution
// state into a human-readable report.
type Synthesizer interface {
	Synthesize(ctx context.Context, plan *Plan, state *ExecutionState) (*SynthesisResult, error)
}

// Store is the durable key-value persistence contract. Records are grouped
// into namespaces ("plans", "states", "escalations") and addressed by key
// within a namespace. Values are opaque serialized records.
type Store interface {
	// Get returns the value for key, a presence flag and any storage error.
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)

	// Set writes or replaces the value for key.
	Set(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes the value for key. Deleting an absent key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// ListAll returns every value in the namespace, ordered by key.
	ListAll(ctx context.Context, namespace string) ([][]byte, error)
}

// Notifier is the delivery collaborator for escalation and completion
// records. Delivery is best-effort: the engine performs no retries and never
// inspects delivery success beyond logging.
type Notifier interface {
	Deliver(ctx context.Context, n Notification) error
}
