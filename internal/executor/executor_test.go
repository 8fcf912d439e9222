package executor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/taskforge/taskforge/internal/events"
	"github.com/taskforge/taskforge/internal/locks"
	"github.com/taskforge/taskforge/internal/taskcore"
)

// scriptedRunner returns taskcore.TaskResult{Success: succeed[task.ID]} after
// a short deterministic delay, and counts invocations per task id.
type scriptedRunner struct {
	mu      sync.Mutex
	succeed map[string]bool
	calls   map[string]int
}

func newScriptedRunner(succeed map[string]bool) *scriptedRunner {
	return &scriptedRunner{succeed: succeed, calls: make(map[string]int)}
}

func (r *scriptedRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	r.mu.Lock()
	r.calls[task.ID]++
	r.mu.Unlock()

	start := time.Now()
	time.Sleep(time.Millisecond)
	ok := r.succeed[task.ID]
	return &taskcore.TaskResult{
		TaskID:     task.ID,
		Success:    ok,
		StartTime:  start.UnixNano(),
		EndTime:    time.Now().UnixNano(),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func mkPlan(tasks ...taskcore.Task) *taskcore.ExecutionPlan {
	m := make(map[string]taskcore.Task, len(tasks))
	for _, t := range tasks {
		m[t.ID] = t
	}
	return &taskcore.ExecutionPlan{
		ProjectName: "test",
		TaskGraph:   taskcore.TaskGraphInput{Tasks: m},
	}
}

func TestExecuteRunsDependencyOrderAndSucceeds(t *testing.T) {
	runner := newScriptedRunner(map[string]bool{"A": true, "B": true})
	cfg := DefaultConfig()
	cfg.Pool.MinWorkers = 2
	cfg.Pool.MaxWorkers = 2
	cfg.EnableAutoScale = false
	ex := New(cfg, runner, nil)

	plan := mkPlan(
		taskcore.Task{ID: "A"},
		taskcore.Task{ID: "B", Dependencies: []string{"A"}},
	)

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected overall success, got %+v", res)
	}
	if len(res.TaskResults) != 2 {
		t.Fatalf("expected 2 task results, got %d", len(res.TaskResults))
	}

	aEnd := lastEventTime(res.Events, "A", events.TaskCompleted)
	bStart := firstEventTime(res.Events, "B", events.TaskStarted)
	if aEnd.IsZero() || bStart.IsZero() {
		t.Fatalf("expected both A-completed and B-started events, got %+v", res.Events)
	}
	if bStart.Before(aEnd) {
		t.Fatalf("expected B to start only after A completed; A ended %v, B started %v", aEnd, bStart)
	}
	if res.CompletedTasks != 2 || res.FailedTasks != 0 {
		t.Fatalf("expected 2 completed, 0 failed, got completed=%d failed=%d", res.CompletedTasks, res.FailedTasks)
	}
	// A linear chain never runs more than one task at a time.
	if res.PeakParallelism != 1 {
		t.Fatalf("expected peak parallelism of 1 for a linear chain, got %d", res.PeakParallelism)
	}
	if len(res.WorkerStats) != 2 {
		t.Fatalf("expected per-worker stats for both pool workers, got %d", len(res.WorkerStats))
	}
}

func TestExecuteTerminalFailureUnblocksIndependentSiblings(t *testing.T) {
	runner := newScriptedRunner(map[string]bool{"A": false, "C": true})
	cfg := DefaultConfig()
	cfg.Queue.MaxRetries = 0
	cfg.Queue.RetryFailedTasks = false
	cfg.Pool.MinWorkers = 2
	cfg.Pool.MaxWorkers = 2
	cfg.EnableAutoScale = false
	ex := New(cfg, runner, nil)

	plan := mkPlan(
		taskcore.Task{ID: "A"},
		taskcore.Task{ID: "B", Dependencies: []string{"A"}},
		taskcore.Task{ID: "C"},
	)

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatalf("expected overall failure because A failed terminally, got %+v", res)
	}
	if res.TaskResults["C"] == nil || !res.TaskResults["C"].Success {
		t.Fatalf("expected C (independent of A) to still complete, got %+v", res.TaskResults["C"])
	}
	if res.TaskResults["B"] == nil {
		t.Fatalf("expected B to run once its only dependency's terminal failure unblocked it, got no result for B")
	}
}

func TestExecuteRetriesThenSucceeds(t *testing.T) {
	runner := newFlakyRunner(2) // fails twice, succeeds on the 3rd attempt
	cfg := DefaultConfig()
	cfg.Queue.MaxRetries = 2
	cfg.Queue.RetryFailedTasks = true
	cfg.Pool.MinWorkers = 1
	cfg.Pool.MaxWorkers = 1
	cfg.EnableAutoScale = false
	ex := New(cfg, runner, nil)

	plan := mkPlan(taskcore.Task{ID: "A"})

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected eventual success after retries, got %+v", res)
	}
	if runner.attempts("A") != 3 {
		t.Fatalf("expected exactly 3 attempts (2 failures + 1 success), got %d", runner.attempts("A"))
	}
}

func TestExecuteTimeoutUnblocksDependentWithoutRetrying(t *testing.T) {
	runner := &timeoutOnceRunner{sleepFor: map[string]time.Duration{"A": 300 * time.Millisecond}}
	cfg := DefaultConfig()
	cfg.Queue.TaskTimeout = 50 * time.Millisecond
	cfg.Queue.MaxRetries = 5 // high on purpose: a timeout must never consume a retry
	cfg.Queue.RetryFailedTasks = true
	cfg.Pool.MinWorkers = 2
	cfg.Pool.MaxWorkers = 2
	cfg.EnableAutoScale = false
	cfg.PollInterval = 10 * time.Millisecond
	ex := New(cfg, runner, nil)

	plan := mkPlan(
		taskcore.Task{ID: "A"},
		taskcore.Task{ID: "B", Dependencies: []string{"A"}},
	)

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatalf("expected overall failure since A timed out, got %+v", res)
	}
	if runner.attempts("A") != 1 {
		t.Fatalf("expected exactly one attempt at A: a timeout must not be retried, got %d", runner.attempts("A"))
	}
	if res.TaskResults["B"] == nil || !res.TaskResults["B"].Success {
		t.Fatalf("expected B to run and succeed once A's timeout unblocked it, got %+v", res.TaskResults["B"])
	}
}

// lockConflictRunner serializes "l" and "r" through a shared write lock
// and records each task's run interval so the test can assert they never
// overlapped.
type lockConflictRunner struct {
	ex       *Executor
	resource string
	hold     time.Duration

	mu        sync.Mutex
	intervals map[string][2]time.Time
}

func (r *lockConflictRunner) interval(id string) (time.Time, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv := r.intervals[id]
	return iv[0], iv[1]
}

func (r *lockConflictRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	start := time.Now()
	if task.ID == "l" || task.ID == "r" {
		if !r.ex.Locks().Acquire(r.resource, locks.Write, task.ID, task.ID, time.Second, time.Second) {
			return &taskcore.TaskResult{TaskID: task.ID, Success: false, Error: "lock acquisition timed out"}, nil
		}
		defer r.ex.Locks().Release(r.resource, task.ID)
		start = time.Now() // the recorded interval covers only the lock hold
		time.Sleep(r.hold)
	}
	end := time.Now()

	r.mu.Lock()
	if r.intervals == nil {
		r.intervals = make(map[string][2]time.Time)
	}
	r.intervals[task.ID] = [2]time.Time{start, end}
	r.mu.Unlock()

	return &taskcore.TaskResult{
		TaskID:     task.ID,
		Success:    true,
		StartTime:  start.UnixNano(),
		EndTime:    end.UnixNano(),
		DurationMs: end.Sub(start).Milliseconds(),
	}, nil
}

func TestExecuteDiamondWithLockConflictSerializesWriters(t *testing.T) {
	runner := &lockConflictRunner{resource: "components/forms/", hold: 20 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Pool.MinWorkers = 2
	cfg.Pool.MaxWorkers = 2
	cfg.EnableAutoScale = false
	ex := New(cfg, runner, nil)
	runner.ex = ex

	plan := mkPlan(
		taskcore.Task{ID: "root"},
		taskcore.Task{ID: "l", Dependencies: []string{"root"}},
		taskcore.Task{ID: "r", Dependencies: []string{"root"}},
		taskcore.Task{ID: "join", Dependencies: []string{"l", "r"}},
	)

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.FailedTasks != 0 {
		t.Fatalf("expected every task in the diamond to succeed, got %+v", res)
	}

	lStart, lEnd := runner.interval("l")
	rStart, rEnd := runner.interval("r")
	if lStart.IsZero() || rStart.IsZero() {
		t.Fatalf("expected both l and r to have run, got l=%v r=%v", lStart, rStart)
	}
	if lStart.Before(rEnd) && rStart.Before(lEnd) {
		t.Fatalf("expected l and r to never hold the write lock concurrently: l=[%v,%v] r=[%v,%v]", lStart, lEnd, rStart, rEnd)
	}

	joinStart := firstEventTime(res.Events, "join", events.TaskStarted)
	if joinStart.IsZero() {
		t.Fatalf("expected join to run")
	}
	if joinStart.Before(lEnd) || joinStart.Before(rEnd) {
		t.Fatalf("expected join to start only after both l and r completed; join started %v, l ended %v, r ended %v", joinStart, lEnd, rEnd)
	}
}

// slowSucceedRunner always succeeds after a fixed delay, long enough for
// the dispatch loop to observe many simultaneously-ready tasks and grow
// the pool before they all finish.
type slowSucceedRunner struct {
	delay time.Duration
}

func (r slowSucceedRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	start := time.Now()
	time.Sleep(r.delay)
	end := time.Now()
	return &taskcore.TaskResult{
		TaskID:     task.ID,
		Success:    true,
		StartTime:  start.UnixNano(),
		EndTime:    end.UnixNano(),
		DurationMs: end.Sub(start).Milliseconds(),
	}, nil
}

func TestExecuteAutoScalesUpToMaxUnderLoad(t *testing.T) {
	runner := slowSucceedRunner{delay: 30 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Pool.MinWorkers = 1
	cfg.Pool.MaxWorkers = 5
	cfg.EnableAutoScale = true
	cfg.Autoscale.MinWorkers = 1
	cfg.Autoscale.MaxWorkers = 5
	cfg.Autoscale.ScaleUpThreshold = 5
	cfg.Autoscale.Cooldown = 0
	cfg.PollInterval = 5 * time.Millisecond
	ex := New(cfg, runner, nil)

	tasks := make([]taskcore.Task, 0, 20)
	for i := 0; i < 20; i++ {
		tasks = append(tasks, taskcore.Task{ID: fmt.Sprintf("t%02d", i)})
	}
	plan := mkPlan(tasks...)

	res, err := ex.Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success || res.CompletedTasks != 20 {
		t.Fatalf("expected all 20 independent tasks to complete, got %+v", res)
	}
	if res.PeakParallelism != 5 {
		t.Fatalf("expected the pool to scale up to its max of 5 workers and reach peak parallelism 5, got %d", res.PeakParallelism)
	}
}

// timeoutOnceRunner sleeps for the configured duration (observing ctx
// cancellation like a well-behaved runner should) before reporting success.
type timeoutOnceRunner struct {
	mu       sync.Mutex
	sleepFor map[string]time.Duration
	calls    map[string]int
}

func (r *timeoutOnceRunner) attempts(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		return 0
	}
	return r.calls[id]
}

func (r *timeoutOnceRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	r.mu.Lock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[task.ID]++
	r.mu.Unlock()

	start := time.Now()
	d := r.sleepFor[task.ID]
	select {
	case <-ctx.Done():
		return &taskcore.TaskResult{TaskID: task.ID, Success: false, Error: ctx.Err().Error(), StartTime: start.UnixNano(), EndTime: time.Now().UnixNano(), DurationMs: time.Since(start).Milliseconds()}, nil
	case <-time.After(d):
		return &taskcore.TaskResult{TaskID: task.ID, Success: true, StartTime: start.UnixNano(), EndTime: time.Now().UnixNano(), DurationMs: time.Since(start).Milliseconds()}, nil
	}
}

func firstEventTime(evts []events.Event, taskID string, kind events.Kind) time.Time {
	for _, e := range evts {
		if e.TaskID == taskID && e.Kind == kind {
			return e.Timestamp
		}
	}
	return time.Time{}
}

func lastEventTime(evts []events.Event, taskID string, kind events.Kind) time.Time {
	var last time.Time
	for _, e := range evts {
		if e.TaskID == taskID && e.Kind == kind {
			last = e.Timestamp
		}
	}
	return last
}

// flakyRunner fails a task's first n attempts, then succeeds.
type flakyRunner struct {
	mu     sync.Mutex
	failN  int
	counts map[string]int
}

func newFlakyRunner(failN int) *flakyRunner {
	return &flakyRunner{failN: failN, counts: make(map[string]int)}
}

func (r *flakyRunner) attempts(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func (r *flakyRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	r.mu.Lock()
	r.counts[task.ID]++
	n := r.counts[task.ID]
	r.mu.Unlock()

	start := time.Now()
	time.Sleep(time.Millisecond)
	ok := n > r.failN
	return &taskcore.TaskResult{
		TaskID:     task.ID,
		Success:    ok,
		StartTime:  start.UnixNano(),
		EndTime:    time.Now().UnixNano(),
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}
