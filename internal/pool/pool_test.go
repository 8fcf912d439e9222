package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskforge/taskforge/internal/taskcore"
)

func TestNewPoolStartsWithMinWorkers(t *testing.T) {
	p := New(Config{MinWorkers: 2, MaxWorkers: 5}, nil)
	if p.Size() != 2 {
		t.Fatalf("expected 2 workers at construction, got %d", p.Size())
	}
}

func TestIdleWorkerReturnsLongestIdle(t *testing.T) {
	p := New(Config{MinWorkers: 2, MaxWorkers: 5}, nil)
	snap := p.Snapshot()
	older := snap[0].ID

	p.mu.Lock()
	p.workers[older].LastActivityTime = time.Now().Add(-time.Hour)
	p.mu.Unlock()

	w := p.IdleWorker(false)
	if w == nil || w.ID != older {
		t.Fatalf("expected %s to be selected as longest idle, got %v", older, w)
	}
}

func TestIdleWorkerGrowsWhenAllowed(t *testing.T) {
	p := New(Config{MinWorkers: 0, MaxWorkers: 1}, nil)
	if p.Size() != 0 {
		t.Fatalf("expected 0 workers at construction")
	}
	w := p.IdleWorker(true)
	if w == nil {
		t.Fatalf("expected a synthesized worker")
	}
	if p.Size() != 1 {
		t.Fatalf("expected pool to have grown to 1, got %d", p.Size())
	}
}

func TestIdleWorkerRefusesToGrowAtMax(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, nil)
	p.mu.Lock()
	for _, w := range p.workers {
		w.Status = Busy
	}
	p.mu.Unlock()

	if w := p.IdleWorker(true); w != nil {
		t.Fatalf("expected no idle worker and no growth at MaxWorkers, got %v", w)
	}
}

type fakeRunner struct {
	result *taskcore.TaskResult
	err    error
	panics bool
}

func (f fakeRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	if f.panics {
		panic("boom")
	}
	return f.result, f.err
}

func TestAssignSuccessRestoresIdleAndIncrementsCompleted(t *testing.T) {
	runner := fakeRunner{result: &taskcore.TaskResult{TaskID: "t1", Success: true}}
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, runner)
	w := p.IdleWorker(false)

	res, err := p.Assign(context.Background(), w.ID, taskcore.Task{ID: "t1"}, nil)
	if err != nil || res == nil || !res.Success {
		t.Fatalf("expected success result, got res=%v err=%v", res, err)
	}
	snap := p.Snapshot()
	if snap[0].Status != Idle || snap[0].TasksCompleted != 1 {
		t.Fatalf("expected worker idle with 1 completed task, got %+v", snap[0])
	}
}

func TestAssignFailureRestoresIdleAndIncrementsFailed(t *testing.T) {
	runner := fakeRunner{result: &taskcore.TaskResult{TaskID: "t1", Success: false}, err: errors.New("boom")}
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, runner)
	w := p.IdleWorker(false)

	_, err := p.Assign(context.Background(), w.ID, taskcore.Task{ID: "t1"}, nil)
	if err == nil {
		t.Fatalf("expected the runner's error to propagate")
	}
	snap := p.Snapshot()
	if snap[0].Status != Idle || snap[0].TasksFailed != 1 {
		t.Fatalf("expected worker idle with 1 failed task, got %+v", snap[0])
	}
}

func TestAssignPanicRestoresIdleAndReportsFailure(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, fakeRunner{panics: true})
	w := p.IdleWorker(false)

	res, err := p.Assign(context.Background(), w.ID, taskcore.Task{ID: "t1"}, nil)
	if err != nil {
		t.Fatalf("expected a recovered panic to surface as a failed result, not an error: %v", err)
	}
	if res == nil || res.Success {
		t.Fatalf("expected a failed result from the recovered panic, got %v", res)
	}
	snap := p.Snapshot()
	if snap[0].Status != Idle || snap[0].TasksFailed != 1 {
		t.Fatalf("expected worker idle with 1 failed task after panic, got %+v", snap[0])
	}
}

func TestAssignRefusesBusyOrUnknownWorker(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, fakeRunner{result: &taskcore.TaskResult{Success: true}})
	if _, err := p.Assign(context.Background(), "missing", taskcore.Task{ID: "t1"}, nil); err == nil {
		t.Fatalf("expected an error for an unknown worker id")
	}
}

func TestIdleWorkerReservesAndHidesWorkerFromReselection(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, nil)

	first := p.IdleWorker(false)
	if first == nil {
		t.Fatalf("expected a worker to be selected")
	}
	if second := p.IdleWorker(false); second != nil {
		t.Fatalf("expected the sole worker to be reserved and unavailable, got %v", second)
	}

	snap := p.Snapshot()
	if snap[0].Status != Busy {
		t.Fatalf("expected the reserved worker to already be Busy in the pool, got %v", snap[0].Status)
	}
}

func TestUnreserveReturnsUnclaimedReservationToIdle(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, nil)
	w := p.IdleWorker(false)
	if w == nil {
		t.Fatalf("expected a worker to be reserved")
	}

	p.Unreserve(w.ID)

	snap := p.Snapshot()
	if snap[0].Status != Idle {
		t.Fatalf("expected the unreserved worker back to Idle, got %v", snap[0].Status)
	}

	again := p.IdleWorker(false)
	if again == nil || again.ID != w.ID {
		t.Fatalf("expected the unreserved worker to be selectable again, got %v", again)
	}
}

func TestUnreserveIsNoopOnceClaimed(t *testing.T) {
	runner := fakeRunner{result: &taskcore.TaskResult{Success: true}}
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, runner)
	w := p.IdleWorker(false)

	if _, err := p.Assign(context.Background(), w.ID, taskcore.Task{ID: "t1"}, nil); err != nil {
		t.Fatalf("expected Assign to succeed: %v", err)
	}
	// Assign already restored the worker to Idle with TasksCompleted=1;
	// Unreserve must not disturb that finished state.
	p.Unreserve(w.ID)
	snap := p.Snapshot()
	if snap[0].Status != Idle || snap[0].TasksCompleted != 1 {
		t.Fatalf("expected Unreserve to be a no-op after Assign completed, got %+v", snap[0])
	}
}

func TestScaleUpAndDown(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 5}, nil)
	added, _ := p.Scale(3)
	if len(added) != 2 || p.Size() != 3 {
		t.Fatalf("expected pool to grow to 3, got size=%d added=%v", p.Size(), added)
	}

	_, removed := p.Scale(1)
	if len(removed) != 2 || p.Size() != 1 {
		t.Fatalf("expected pool to shrink to 1, got size=%d removed=%v", p.Size(), removed)
	}
}

func TestScaleClampsToBounds(t *testing.T) {
	p := New(Config{MinWorkers: 2, MaxWorkers: 4}, nil)
	p.Scale(100)
	if p.Size() != 4 {
		t.Fatalf("expected scale to clamp at MaxWorkers=4, got %d", p.Size())
	}
	p.Scale(0)
	if p.Size() != 2 {
		t.Fatalf("expected scale to clamp at MinWorkers=2, got %d", p.Size())
	}
}

func TestScaleDownNeverRemovesBusyWorkers(t *testing.T) {
	p := New(Config{MinWorkers: 2, MaxWorkers: 2}, nil)
	snap := p.Snapshot()
	p.mu.Lock()
	p.workers[snap[0].ID].Status = Busy
	p.mu.Unlock()

	p.cfg.MinWorkers = 0
	_, removed := p.Scale(0)
	if len(removed) != 1 {
		t.Fatalf("expected only the idle worker to be removable, got %v", removed)
	}
	if p.Size() != 1 {
		t.Fatalf("expected the busy worker to survive, pool size=%d", p.Size())
	}
}

func TestTerminateRefusesBusyWorker(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1}, nil)
	snap := p.Snapshot()
	p.mu.Lock()
	p.workers[snap[0].ID].Status = Busy
	p.mu.Unlock()

	if err := p.Terminate(snap[0].ID); err == nil {
		t.Fatalf("expected Terminate to refuse a busy worker")
	}
}

func TestHealthCheckFlagsStuckWorker(t *testing.T) {
	p := New(Config{MinWorkers: 1, MaxWorkers: 1, StuckThreshold: time.Minute}, nil)
	snap := p.Snapshot()
	id := snap[0].ID

	p.mu.Lock()
	p.workers[id].Status = Busy
	p.workers[id].CurrentStartedAt = time.Now().Add(-2 * time.Hour)
	p.mu.Unlock()

	flagged := p.HealthCheck()
	if len(flagged) != 1 || flagged[0] != id {
		t.Fatalf("expected %s flagged as stuck, got %v", id, flagged)
	}

	if err := p.Terminate(id); err != nil {
		t.Fatalf("expected a healthCheck-flagged worker to be terminable: %v", err)
	}
}

func TestShutdownRemovesAllWorkers(t *testing.T) {
	p := New(Config{MinWorkers: 3, MaxWorkers: 3}, nil)
	p.Shutdown()
	if p.Size() != 0 {
		t.Fatalf("expected pool empty after shutdown, got %d", p.Size())
	}
}
