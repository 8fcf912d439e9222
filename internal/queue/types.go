package queue

import (
	"strings"
	"time"

	"github.com/taskforge/taskforge/internal/taskcore"
)

// PriorityBucket is the discrete category a task is filed under at enqueue
// time, derived from raw priority plus heuristics on task name and agent.
type PriorityBucket string

const (
	BucketCritical PriorityBucket = "critical"
	BucketHigh     PriorityBucket = "high"
	BucketNormal   PriorityBucket = "normal"
	BucketLow      PriorityBucket = "low"
)

// Weight returns the scheduler-facing numeric weight for the bucket.
func (b PriorityBucket) Weight() int {
	switch b {
	case BucketCritical:
		return 100
	case BucketHigh:
		return 75
	case BucketNormal:
		return 50
	default:
		return 25
	}
}

// deriveBucket classifies a task once, at enqueue time, from its raw
// priority plus name/agent heuristics.
func deriveBucket(t taskcore.Task) PriorityBucket {
	name := strings.ToLower(t.Name)
	agent := strings.ToLower(t.Agent)

	if t.Priority >= 90 || strings.Contains(name, "critical") {
		return BucketCritical
	}
	if t.Priority >= 70 || strings.Contains(name, "urgent") || agent == "lead" || agent == "architect" {
		return BucketHigh
	}
	if t.Priority >= 30 {
		return BucketNormal
	}
	return BucketLow
}

// Status is the runtime lifecycle state of a QueuedTask.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusReady     Status = "ready"
	StatusBlocked   Status = "blocked"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether s is a final state a task cannot leave.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueuedTask is the mutable record the queue owns for one task.
type QueuedTask struct {
	Task           taskcore.Task
	PriorityBucket PriorityBucket
	Status         Status

	QueuedAt    time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	WorkerID    string

	RetryCount int

	// Dependencies is the live set: it shrinks as dependencies complete or
	// are spliced out after a final upstream failure.
	Dependencies map[string]struct{}
	Dependents   map[string]struct{}

	// seq disambiguates FIFO ordering for tasks enqueued at an identical
	// timestamp (common under fast test clocks).
	seq uint64
}

// Snapshot returns a shallow value copy safe to hand to a caller outside the
// queue's monitor.
func (q *QueuedTask) Snapshot() QueuedTask {
	cp := *q
	cp.Dependencies = cloneSet(q.Dependencies)
	cp.Dependents = cloneSet(q.Dependents)
	return cp
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
