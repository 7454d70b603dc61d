// Package core provides the foundational domain types and collaborator
// contracts used by planmesh. It defines the core abstractions for:
//
//   - Plans (the top-level unit of work: an objective plus an ordered,
//     dependency-linked task list and a lifecycle status)
//   - SubTasks (declared units of work with a tool kind, retry/timeout
//     budget and approval requirement)
//   - ExecutionState (per-plan progress tracking: results, completed and
//     failed sets, blockers and prior task outputs)
//   - Escalations (structured hand-offs to humans or external systems)
//   - Pluggable collaborators for planning, synthesis, persistence and
//     notification delivery
//
// The package intentionally keeps implementation concerns (persistence,
// scheduling, dispatch, classification) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
