// Package queue implements the Task Queue (C2): it owns QueuedTask records
// keyed by id, derives a priority bucket for each at enqueue time, enforces
// the status state machine (queued/ready/blocked/running/completed/failed),
// and applies the retry and timeout policies.
//
// The state-transition discipline (guarded, monitor-serialized mutation)
// follows the same shape as the teacher's internal/dag state machine, with
// the retry edge (failed(transient) -> queued) added, since the teacher's
// build-cache DAG has no notion of retrying a node.
package queue
