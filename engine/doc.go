// Package engine implements the orchestration core for planmesh.
//
// The Engine coordinates the complete lifecycle of a plan: creation, task
// generation through the planning collaborator, dependency-ordered dispatch
// through the tool registry, failure classification with adaptive
// re-planning, approval gating, escalation, and the final hand-off to the
// synthesis collaborator.
//
// # Execution Model
//
// The engine is reactive and event-driven, not a tight loop. Each external
// event (plan launched, approval decided, plan resumed, plan cancelled)
// invokes the scheduler step chain exactly once and returns. There is no
// background worker polling plan state.
//
// Concurrency occurs at two levels:
//
//   - Across plans: independent plans share no mutable state beyond the
//     store and are processed in parallel without coordination.
//   - Within a plan: at most one task is in flight at a time. An active-run
//     registry guarantees a single drive loop per plan; concurrent triggers
//     for the same plan are no-ops while a loop is running.
//
// All mutation of Plan and ExecutionState is read-modify-write against the
// store: every mutating step re-fetches immediately before writing.
// Writes are optimistic and last-writer-wins; the single-task-in-flight
// design makes a transactional guarantee unnecessary.
//
// # Error Handling
//
// Nothing propagates past the engine boundary as a panic. Transient tool
// failures are absorbed by the dispatcher's retry budget; exhausted failures
// route through the classifier to re-planning, escalation, or terminal
// failure; lookup failures drop the triggering event after logging. A plan's
// status and progress are always queryable mid-failure.
package engine
