package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/events"
	"github.com/taskforge/taskforge/internal/taskcore"
)

// Pool is the Worker Pool (C5) monitor.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	workers map[string]*Worker
	runner  taskcore.TaskRunner

	Events *events.Recorder

	now func() time.Time
}

// New creates a Pool already populated with idle workers: cfg.WorkerCount
// of them when cfg.AutoScale is false, or cfg.MinWorkers when it is true,
// per spec.md §4.5.
func New(cfg Config, runner taskcore.TaskRunner) *Pool {
	p := &Pool{
		cfg:     cfg,
		workers: make(map[string]*Worker),
		runner:  runner,
		Events:  events.NewRecorder("pool", 1000),
		now:     time.Now,
	}
	initial := cfg.WorkerCount
	if cfg.AutoScale {
		initial = cfg.MinWorkers
	}
	if initial < cfg.MinWorkers {
		initial = cfg.MinWorkers
	}
	if cfg.MaxWorkers > 0 && initial > cfg.MaxWorkers {
		initial = cfg.MaxWorkers
	}
	for i := 0; i < initial; i++ {
		p.addWorkerLocked()
	}
	return p
}

func (p *Pool) addWorkerLocked() *Worker {
	w := &Worker{ID: "worker-" + uuid.NewString()[:8], Status: Idle, LastActivityTime: p.now()}
	p.workers[w.ID] = w
	events.SafeRecord(p.Events, events.Event{Timestamp: w.LastActivityTime, Kind: events.WorkerStarted, WorkerID: w.ID})
	return w
}

// IdleWorker selects the worker that has been idle longest, or, if
// allowGrow is true and the pool has not yet reached MaxWorkers, a freshly
// synthesized worker, and atomically reserves it by transitioning it to
// Busy before returning. The reservation keeps the same worker from being
// handed out twice by a caller that selects a worker and only later, in a
// separate goroutine, gets around to calling Assign on it. A reservation
// that is never followed by Assign must be released with Unreserve.
// IdleWorker returns nil when no worker is available.
func (p *Pool) IdleWorker(allowGrow bool) *Worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	var longest *Worker
	for _, w := range p.workers {
		if w.Status != Idle {
			continue
		}
		if longest == nil || w.LastActivityTime.Before(longest.LastActivityTime) ||
			(w.LastActivityTime.Equal(longest.LastActivityTime) && w.ID < longest.ID) {
			longest = w
		}
	}
	if longest == nil {
		if !allowGrow || len(p.workers) >= p.cfg.MaxWorkers {
			return nil
		}
		longest = p.addWorkerLocked()
	}

	longest.Status = Busy
	longest.CurrentStartedAt = p.now()
	cp := *longest
	return &cp
}

// Unreserve releases a reservation made by IdleWorker that the caller
// decided not to use (e.g. no ready task was available), returning the
// worker to Idle. It is a no-op if the worker was since claimed by Assign
// (CurrentTaskID set) or no longer exists.
func (p *Pool) Unreserve(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[workerID]
	if !ok || w.Status != Busy || w.CurrentTaskID != "" {
		return
	}
	w.Status = Idle
	w.LastActivityTime = p.now()
}

// Assign synchronously runs task on worker via the injected TaskRunner.
// worker must already be reserved: either freshly returned by IdleWorker
// (Busy, no CurrentTaskID yet) or, for direct callers that never reserve
// it themselves, still Idle. Either way Assign claims it for task and
// restores it to idle on every exit path, including a panic from the
// runner, which is recovered and reported as a failed TaskResult.
func (p *Pool) Assign(ctx context.Context, workerID string, task taskcore.Task, plan *taskcore.ExecutionPlan) (result *taskcore.TaskResult, err error) {
	if !p.claim(workerID, task.ID) {
		return nil, fmt.Errorf("pool: worker %q is not available", workerID)
	}
	defer func() { p.markIdle(workerID, result) }()

	startedAt := p.now()
	defer func() {
		if r := recover(); r != nil {
			result = &taskcore.TaskResult{
				TaskID:     task.ID,
				Success:    false,
				StartTime:  startedAt.UnixNano(),
				EndTime:    p.now().UnixNano(),
				DurationMs: p.now().Sub(startedAt).Milliseconds(),
				Error:      fmt.Sprintf("panic: %v", r),
			}
			err = nil
		}
	}()

	result, err = p.runner.Run(ctx, task, plan)
	if result == nil {
		endedAt := p.now()
		success := err == nil
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		result = &taskcore.TaskResult{
			TaskID:     task.ID,
			Success:    success,
			StartTime:  startedAt.UnixNano(),
			EndTime:    endedAt.UnixNano(),
			DurationMs: endedAt.Sub(startedAt).Milliseconds(),
			Error:      errMsg,
		}
	}
	return result, err
}

// claim marks workerID busy with taskID. It accepts a worker that is
// already Busy from an IdleWorker reservation (CurrentTaskID still empty)
// as well as a plain Idle worker, so a caller that never reserves through
// IdleWorker can still Assign directly. Any other state (Busy with a
// CurrentTaskID already set, Error, or unknown id) is refused.
func (p *Pool) claim(workerID, taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[workerID]
	if !ok {
		return false
	}
	if !(w.Status == Idle || (w.Status == Busy && w.CurrentTaskID == "")) {
		return false
	}
	w.Status = Busy
	w.CurrentTaskID = taskID
	w.CurrentStartedAt = p.now()
	return true
}

func (p *Pool) markIdle(workerID string, result *taskcore.TaskResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.workers[workerID]
	if !ok {
		return
	}
	if result != nil {
		if result.Success {
			w.TasksCompleted++
		} else {
			w.TasksFailed++
		}
	}
	w.Status = Idle
	w.CurrentTaskID = ""
	w.LastActivityTime = p.now()
}

// Scale adjusts the pool toward target, clamped to [MinWorkers,
// MaxWorkers]. Growth synthesizes idle workers; shrinkage removes only
// workers currently Idle, in lexicographic id order, stopping early if not
// enough idle capacity exists to reach target.
func (p *Pool) Scale(target int) (added, removed []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if target < p.cfg.MinWorkers {
		target = p.cfg.MinWorkers
	}
	if target > p.cfg.MaxWorkers {
		target = p.cfg.MaxWorkers
	}

	for len(p.workers) < target {
		w := p.addWorkerLocked()
		added = append(added, w.ID)
	}

	if len(p.workers) > target {
		var idleIDs []string
		for id, w := range p.workers {
			if w.Status == Idle {
				idleIDs = append(idleIDs, id)
			}
		}
		sort.Strings(idleIDs)
		need := len(p.workers) - target
		for i := 0; i < need && i < len(idleIDs); i++ {
			id := idleIDs[i]
			delete(p.workers, id)
			removed = append(removed, id)
			events.SafeRecord(p.Events, events.Event{Timestamp: p.now(), Kind: events.WorkerStopped, WorkerID: id})
		}
	}
	return added, removed
}

// Terminate removes worker id, refusing when it is Busy unless healthCheck
// has already flagged it Error.
func (p *Pool) Terminate(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w, ok := p.workers[id]
	if !ok {
		return fmt.Errorf("pool: unknown worker %q", id)
	}
	if w.Status == Busy {
		return fmt.Errorf("pool: worker %q is busy", id)
	}
	delete(p.workers, id)
	events.SafeRecord(p.Events, events.Event{Timestamp: p.now(), Kind: events.WorkerStopped, WorkerID: id})
	return nil
}

// HealthCheck flags every worker that has been continuously Busy for
// longer than cfg.StuckThreshold as Error, making it reclaimable by a
// subsequent Terminate, and returns the flagged ids in lexicographic order.
func (p *Pool) HealthCheck() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var flagged []string
	for id, w := range p.workers {
		if w.Status == Busy && w.busyFor(now) > p.cfg.StuckThreshold {
			w.Status = Error
			flagged = append(flagged, id)
		}
	}
	sort.Strings(flagged)
	return flagged
}

// Shutdown terminates every remaining worker in lexicographic id order,
// emitting worker_stopped per worker, and forcibly drops any worker still
// Busy (there is no further in-flight work once the executor has already
// waited for all tasks to settle).
func (p *Pool) Shutdown() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.workers))
	for id := range p.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	p.mu.Unlock()

	for _, id := range ids {
		p.mu.Lock()
		delete(p.workers, id)
		p.mu.Unlock()
		events.SafeRecord(p.Events, events.Event{Timestamp: p.now(), Kind: events.WorkerStopped, WorkerID: id})
	}
}

// Snapshot returns value-copy snapshots of every worker, in id order.
func (p *Pool) Snapshot() []Worker {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.workers))
	for id := range p.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Worker, 0, len(ids))
	for _, id := range ids {
		out = append(out, *p.workers[id])
	}
	return out
}

// Size returns the current worker count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}
