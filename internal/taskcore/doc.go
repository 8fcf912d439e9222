// Package taskcore defines the domain model shared by every component of the
// execution engine: the immutable Task as supplied by an upstream planner,
// the ExecutionPlan that wraps a set of tasks, and the TaskRunner contract an
// embedder implements to perform the actual work of one task.
//
// Nothing in this package mutates a Task after construction. Runtime status
// lives in the queue package's QueuedTask, which holds a copy of the Task.
package taskcore
