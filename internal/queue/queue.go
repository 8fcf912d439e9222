package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/taskforge/taskforge/internal/events"
	"github.com/taskforge/taskforge/internal/taskcore"
)

// Queue is the Task Queue (C2) monitor: every mutation is serialized behind
// mu, matching the single-coarse-critical-section discipline spec.md §5
// requires of the three shared-mutable components.
type Queue struct {
	mu  sync.Mutex
	cfg Config

	tasks map[string]*QueuedTask
	seq   uint64

	Events *events.Recorder

	now func() time.Time
}

// New creates an empty Queue under cfg.
func New(cfg Config) *Queue {
	return &Queue{
		cfg:    cfg,
		tasks:  make(map[string]*QueuedTask),
		Events: events.NewRecorder("queue", 1000),
		now:    time.Now,
	}
}

// Enqueue files task with the given dependency ids, deriving its priority
// bucket once. The task starts blocked iff it has one or more dependencies,
// otherwise queued. Emits task_queued.
func (q *Queue) Enqueue(task taskcore.Task, dependencies []string) *QueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	deps := make(map[string]struct{}, len(dependencies))
	for _, d := range dependencies {
		deps[d] = struct{}{}
	}

	status := StatusQueued
	if len(deps) > 0 {
		status = StatusBlocked
	}

	q.seq++
	qt := &QueuedTask{
		Task:           task,
		PriorityBucket: deriveBucket(task),
		Status:         status,
		QueuedAt:       q.now(),
		Dependencies:   deps,
		Dependents:     make(map[string]struct{}),
		seq:            q.seq,
	}
	q.tasks[task.ID] = qt

	events.SafeRecord(q.Events, events.Event{Timestamp: qt.QueuedAt, Kind: events.TaskQueued, TaskID: task.ID})
	return qt
}

// RegisterDependent records that dependentID depends on id, so that when id
// completes or is spliced out, dependentID's live set is updated. Enqueue
// order is arbitrary, so callers should register edges for both directions
// as tasks are enqueued.
func (q *Queue) RegisterDependent(id, dependentID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n, ok := q.tasks[id]; ok {
		n.Dependents[dependentID] = struct{}{}
	}
}

// NextReady returns the highest-priority ready|queued task, or nil if none
// is available. Ordering: bucket weight descending, then queuedAt
// ascending, then insertion sequence as a final deterministic tie-break.
// When cfg.PriorityScheduling is false, pure FIFO (queuedAt, then seq) is
// used instead.
func (q *Queue) NextReady() *QueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var candidates []*QueuedTask
	for _, t := range q.tasks {
		if t.Status == StatusQueued || t.Status == StatusReady {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if q.cfg.PriorityScheduling && a.PriorityBucket.Weight() != b.PriorityBucket.Weight() {
			return a.PriorityBucket.Weight() > b.PriorityBucket.Weight()
		}
		if !a.QueuedAt.Equal(b.QueuedAt) {
			return a.QueuedAt.Before(b.QueuedAt)
		}
		return a.seq < b.seq
	})
	return candidates[0]
}

// MarkStarted transitions id to running and records ownership by workerID.
func (q *Queue) MarkStarted(id, workerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return
	}
	t.Status = StatusRunning
	t.WorkerID = workerID
	t.StartedAt = q.now()
	events.SafeRecord(q.Events, events.Event{Timestamp: t.StartedAt, Kind: events.TaskStarted, TaskID: id, WorkerID: workerID})
}

// MarkCompleted transitions id to completed and unblocks any dependent whose
// live dependency set becomes empty. A no-op if id is no longer running
// (e.g. a timeout sweep already moved it to terminal failed concurrently
// with the runner finishing late).
func (q *Queue) MarkCompleted(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusRunning {
		return
	}
	t.Status = StatusCompleted
	t.CompletedAt = q.now()
	events.SafeRecord(q.Events, events.Event{Timestamp: t.CompletedAt, Kind: events.TaskCompleted, TaskID: id, WorkerID: t.WorkerID})

	for dep := range t.Dependents {
		q.unblockIfReady(dep, id)
	}
}

// MarkFailed transitions id according to the retry policy: if retries
// remain (and cfg.RetryFailedTasks), id returns to queued with
// retryCount incremented and its worker/start time cleared; otherwise id
// becomes terminally failed and, if unblockDependents is requested by the
// caller's error classification (timeouts and exhausted retries both
// unblock), its dependents are spliced free. Returns whether a retry will
// occur. A no-op (returns false) if id is no longer running — e.g. a
// timeout sweep already moved it to terminal failed before the runner
// itself returned.
//
// retryCount is incremented on both the retrying branch and the terminal
// one, so a task that exhausts its retries leaves terminal failed with
// retryCount == MaxRetries+1, matching the invariant that terminal failed
// requires retryCount > maxRetries.
func (q *Queue) MarkFailed(id string, unblockDependents bool) (willRetry bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusRunning {
		return false
	}

	if q.cfg.RetryFailedTasks && t.RetryCount < q.cfg.MaxRetries {
		t.RetryCount++
		t.Status = StatusQueued
		t.WorkerID = ""
		t.StartedAt = time.Time{}
		events.SafeRecord(q.Events, events.Event{Timestamp: q.now(), Kind: events.TaskFailed, TaskID: id, Details: "retrying"})
		return true
	}

	t.RetryCount++
	t.Status = StatusFailed
	t.CompletedAt = q.now()
	events.SafeRecord(q.Events, events.Event{Timestamp: t.CompletedAt, Kind: events.TaskFailed, TaskID: id, WorkerID: t.WorkerID})

	if unblockDependents {
		for dep := range t.Dependents {
			q.unblockIfReady(dep, id)
		}
	}
	return false
}

// MarkTimedOut transitions id straight to terminal failed, bypassing the
// retry policy: per spec.md §7, TaskTimeout is "the same as
// TaskExecutionError but not retried." Dependents are always unblocked.
func (q *Queue) MarkTimedOut(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok || t.Status != StatusRunning {
		return
	}

	t.Status = StatusFailed
	t.CompletedAt = q.now()
	events.SafeRecord(q.Events, events.Event{Timestamp: t.CompletedAt, Kind: events.TaskFailed, TaskID: id, WorkerID: t.WorkerID, Details: "timeout"})

	for dep := range t.Dependents {
		q.unblockIfReady(dep, id)
	}
}

// unblockIfReady removes causeID from dep's live dependency set and, if the
// set empties while dep is blocked, promotes dep to ready.
func (q *Queue) unblockIfReady(dep, causeID string) {
	d, ok := q.tasks[dep]
	if !ok {
		return
	}
	delete(d.Dependencies, causeID)
	if len(d.Dependencies) == 0 && d.Status == StatusBlocked {
		d.Status = StatusReady
	}
}

// CheckTimeouts reports the ids of every running task whose elapsed wall
// time since StartedAt exceeds cfg.TaskTimeout. The caller is responsible
// for marking each one failed.
func (q *Queue) CheckTimeouts() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var timedOut []string
	for id, t := range q.tasks {
		if t.Status != StatusRunning {
			continue
		}
		if now.Sub(t.StartedAt) > q.cfg.TaskTimeout {
			timedOut = append(timedOut, id)
		}
	}
	sort.Strings(timedOut)
	return timedOut
}

// IsEmpty reports whether no queued/ready/running/blocked tasks remain.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		if !IsTerminal(t.Status) {
			return false
		}
	}
	return true
}

// Get returns a value-copy snapshot of task id, or false if unknown.
func (q *Queue) Get(id string) (QueuedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok {
		return QueuedTask{}, false
	}
	return t.Snapshot(), true
}

// All returns value-copy snapshots of every task, in id order.
func (q *Queue) All() []QueuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.tasks))
	for id := range q.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]QueuedTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, q.tasks[id].Snapshot())
	}
	return out
}
