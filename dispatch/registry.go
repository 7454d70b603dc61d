// Package dispatch implements the tool registry and dispatcher: it maps a
// task's declared tool kind to an executor, resolves references to prior
// task outputs in the task input, and performs timeout-bounded invocation
// with retry and exponential backoff. The dispatcher is unaware of the task
// graph; dependency eligibility is the scheduler's concern.
package dispatch

import (
	"sync"

	"github.com/hupe1980/planmesh/core"
	"github.com/hupe1980/planmesh/tool"
)

// Registry is the kind → tool lookup table, built at startup and read at
// dispatch time. Registration is thread-safe; registering the same kind
// twice replaces the earlier tool without warning.
type Registry struct {
	mu    sync.RWMutex
	tools map[core.ToolKind]tool.Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[core.ToolKind]tool.Tool)}
}

// Register makes a tool available for its kind.
func (r *Registry) Register(t tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Kind()] = t
}

// Lookup returns the tool for a kind, if registered.
func (r *Registry) Lookup(kind core.ToolKind) (tool.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[kind]
	return t, ok
}

// Kinds returns the registered kind strings, for planner prompts and
// diagnostics. Order is unspecified.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.tools))
	for k := range r.tools {
		kinds = append(kinds, string(k))
	}
	return kinds
}
