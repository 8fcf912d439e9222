package executor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/taskforge/taskforge/internal/autoscale"
	"github.com/taskforge/taskforge/internal/estimate"
	"github.com/taskforge/taskforge/internal/events"
	"github.com/taskforge/taskforge/internal/graph"
	"github.com/taskforge/taskforge/internal/locks"
	"github.com/taskforge/taskforge/internal/metrics"
	"github.com/taskforge/taskforge/internal/pool"
	"github.com/taskforge/taskforge/internal/progress"
	"github.com/taskforge/taskforge/internal/queue"
	"github.com/taskforge/taskforge/internal/schedule"
	"github.com/taskforge/taskforge/internal/taskcore"
)

// Executor is the Executor (C10): the single controller wiring every other
// component together for one run of a plan.
type Executor struct {
	cfg     Config
	runner  taskcore.TaskRunner
	logger  *logrus.Logger
	metrics *metrics.Collector

	queue     *queue.Queue
	pool      *pool.Pool
	scaler    *autoscale.Scaler
	estimator *estimate.Estimator
	locks     *locks.Manager

	graphMu sync.Mutex
	graph   *graph.Graph
}

// New creates an Executor. logger may be nil, in which case a logrus
// logger with default settings is created.
func New(cfg Config, runner taskcore.TaskRunner, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
	}
	cfg.Pool.AutoScale = cfg.EnableAutoScale
	return &Executor{
		cfg:       cfg,
		runner:    runner,
		logger:    logger,
		metrics:   metrics.New(),
		queue:     queue.New(cfg.Queue),
		pool:      pool.New(cfg.Pool, runner),
		scaler:    autoscale.New(cfg.Autoscale),
		estimator: estimate.New(cfg.EstimatorHistory),
		locks:     locks.New(),
	}
}

// Metrics exposes the executor's metrics collector; its Registry method
// returns the private Prometheus registry.
func (e *Executor) Metrics() *metrics.Collector { return e.metrics }

// Locks exposes the lock manager so an embedding TaskRunner can acquire and
// release advisory resource locks during task execution.
func (e *Executor) Locks() *locks.Manager { return e.locks }

// Execute builds the dependency graph for plan, enqueues every task, and
// drives them to completion per the loop in §4.9: poll for an idle worker
// and a ready task, dispatch, and continue until the queue drains, then
// join every in-flight task before producing the Result.
func (e *Executor) Execute(ctx context.Context, plan *taskcore.ExecutionPlan) (*Result, error) {
	runID := uuid.NewString()
	log := e.logger.WithField("run_id", runID)

	tasks := plan.Tasks()
	g, err := graph.BuildGraph(tasks)
	if err != nil {
		log.WithError(err).Warn("dependency graph rejected")
		return nil, err
	}
	e.graph = g
	log.WithField("task_count", len(tasks)).Info("dependency graph built")

	for _, t := range tasks {
		e.queue.Enqueue(t, t.Dependencies)
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			e.queue.RegisterDependent(dep, t.ID)
		}
	}

	strategy := e.cfg.Strategy
	if strategy == "" {
		strategy = schedule.RecommendStrategy(e.queue.All(), e.estimator)
		log.WithField("strategy", strategy).Debug("auto-selected scheduling strategy")
	}

	startedAt := time.Now()
	var resultsMu sync.Mutex
	results := make(map[string]*taskcore.TaskResult, len(tasks))

	var parallelMu sync.Mutex
	var parallelSamples []progress.TimelinePoint
	var inFlight int

	grp, gctx := errgroup.WithContext(ctx)

	for {
		if e.queue.IsEmpty() {
			break
		}

		if e.cfg.EnableAutoScale {
			e.runAutoScale(log)
		}

		ready := e.readyQueuedTasks()
		if len(ready) == 0 {
			e.sweepTimeouts(log)
			sleep(ctx, e.cfg.PollInterval)
			continue
		}

		// IdleWorker reserves the worker (flips it to Busy) before returning,
		// so it cannot be handed out again on the next iteration while this
		// task's goroutine is still starting up and has not yet called Assign.
		worker := e.pool.IdleWorker(e.cfg.EnableAutoScale)
		if worker == nil {
			e.sweepTimeouts(log)
			sleep(ctx, e.cfg.PollInterval)
			continue
		}

		workerInfo := schedule.WorkerInfo{ID: worker.ID, TasksCompleted: worker.TasksCompleted, TasksFailed: worker.TasksFailed}
		chosen := schedule.Select(strategy, ready, workerInfo, e.allWorkerInfos(), e.estimator)
		if chosen == nil {
			e.pool.Unreserve(worker.ID)
			sleep(ctx, e.cfg.PollInterval)
			continue
		}

		task := chosen.Task
		e.queue.MarkStarted(task.ID, worker.ID)
		e.graphMu.Lock()
		e.graph.MarkStarted(task.ID)
		e.graphMu.Unlock()
		e.locks.Snapshot()

		parallelMu.Lock()
		inFlight++
		parallelSamples = append(parallelSamples, progress.TimelinePoint{At: time.Now(), Parallelism: inFlight})
		parallelMu.Unlock()

		workerID := worker.ID
		log.WithFields(logrus.Fields{"task_id": task.ID, "worker_id": workerID}).Info("task started")

		grp.Go(func() error {
			defer func() {
				parallelMu.Lock()
				inFlight--
				parallelSamples = append(parallelSamples, progress.TimelinePoint{At: time.Now(), Parallelism: inFlight})
				parallelMu.Unlock()
			}()

			taskCtx := gctx
			var cancel context.CancelFunc
			if e.cfg.Queue.TaskTimeout > 0 {
				taskCtx, cancel = context.WithTimeout(gctx, e.cfg.Queue.TaskTimeout)
				defer cancel()
			}

			res, runErr := e.pool.Assign(taskCtx, workerID, task, plan)

			resultsMu.Lock()
			results[task.ID] = res
			resultsMu.Unlock()

			success := runErr == nil && res != nil && res.Success
			duration := time.Duration(0)
			if res != nil {
				duration = time.Duration(res.DurationMs) * time.Millisecond
			}
			e.metrics.RecordWorkerBusy(workerID, duration)

			if success {
				e.queue.MarkCompleted(task.ID)
				e.graphMu.Lock()
				e.graph.MarkCompleted(task.ID)
				e.graphMu.Unlock()
				e.estimator.Record(task.Agent, estimate.InferComplexity(*chosen), float64(res.DurationMs))
				e.metrics.RecordTaskCompleted(duration)
				log.WithFields(logrus.Fields{"task_id": task.ID}).Info("task completed")
				return nil
			}

			if e.cfg.Queue.TaskTimeout > 0 && taskCtx.Err() == context.DeadlineExceeded && gctx.Err() == nil {
				// The per-task deadline fired: like a timeout found by
				// sweepTimeouts, it is terminal and never retried.
				e.queue.MarkTimedOut(task.ID)
				e.graphMu.Lock()
				e.graph.MarkFailed(task.ID, true)
				e.graphMu.Unlock()
				e.metrics.RecordTaskFailed(duration)
				log.WithFields(logrus.Fields{"task_id": task.ID}).Warn("task timed out")
				return nil
			}

			willRetry := e.queue.MarkFailed(task.ID, true)
			if willRetry {
				e.graphMu.Lock()
				e.graph.MarkRetry(task.ID)
				e.graphMu.Unlock()
				log.WithFields(logrus.Fields{"task_id": task.ID}).Warn("task failed, will retry")
			} else {
				e.graphMu.Lock()
				e.graph.MarkFailed(task.ID, true)
				e.graphMu.Unlock()
				e.metrics.RecordTaskFailed(duration)
				log.WithFields(logrus.Fields{"task_id": task.ID}).Error("task failed terminally")
			}
			return nil
		})
	}

	_ = grp.Wait()

	finishedAt := time.Now()
	workerCount := maxInt(1, e.pool.Size())
	workerStats := e.pool.Snapshot()
	e.pool.Shutdown()

	merged := events.Merge(e.queue.Events.Snapshot(), e.pool.Events.Snapshot())
	completed, failed, durations := summarize(results)
	elapsed := finishedAt.Sub(startedAt)
	elapsedMinutes := elapsed.Minutes()

	avgDuration := progress.AverageTaskDuration(durations)
	throughput := progress.Throughput(completed, elapsedMinutes)
	utilization := progress.WorkerUtilization(sumDurations(durations), float64(elapsed.Milliseconds()), workerCount)
	efficiency := progress.ParallelismEfficiency(completed, avgDuration, float64(elapsed.Milliseconds()), workerCount)

	avgParallelism, peakParallelism := summarizeParallelism(parallelSamples, startedAt, finishedAt)
	e.metrics.SetDerived(throughput, utilization, efficiency, workerCount, inFlight)

	log.WithFields(logrus.Fields{
		"completed": completed,
		"failed":    failed,
		"duration":  elapsed.String(),
	}).Info("execution finished")

	return &Result{
		RunID:                 runID,
		Success:               failed == 0,
		StartedAt:             startedAt,
		FinishedAt:            finishedAt,
		Duration:              elapsed,
		CompletedTasks:        completed,
		FailedTasks:           failed,
		TaskResults:           results,
		Events:                merged,
		ParallelismTimeline:   parallelSamples,
		AverageParallelism:    avgParallelism,
		PeakParallelism:       peakParallelism,
		Throughput:            throughput,
		AverageTaskDurationMs: avgDuration,
		WorkerUtilization:     utilization,
		ParallelismEfficiency: efficiency,
		WorkerStats:           workerStats,
	}, nil
}

func (e *Executor) readyQueuedTasks() []queue.QueuedTask {
	all := e.queue.All()
	out := make([]queue.QueuedTask, 0, len(all))
	for _, t := range all {
		if t.Status == queue.StatusQueued || t.Status == queue.StatusReady {
			out = append(out, t)
		}
	}
	return out
}

func (e *Executor) allWorkerInfos() []schedule.WorkerInfo {
	snap := e.pool.Snapshot()
	out := make([]schedule.WorkerInfo, 0, len(snap))
	for _, w := range snap {
		out = append(out, schedule.WorkerInfo{ID: w.ID, TasksCompleted: w.TasksCompleted, TasksFailed: w.TasksFailed})
	}
	return out
}

func (e *Executor) runAutoScale(log *logrus.Entry) {
	snap := e.pool.Snapshot()
	states := make([]autoscale.WorkerState, 0, len(snap))
	for _, w := range snap {
		states = append(states, autoscale.WorkerState{ID: w.ID, Busy: w.Status == pool.Busy})
	}
	queuedCount := 0
	for _, t := range e.queue.All() {
		if t.Status == queue.StatusQueued || t.Status == queue.StatusReady {
			queuedCount++
		}
	}
	delta := e.scaler.Evaluate(states, queuedCount)
	if delta == 0 {
		return
	}
	target := e.pool.Size() + delta
	added, removed := e.pool.Scale(target)
	if len(added) > 0 || len(removed) > 0 {
		log.WithFields(logrus.Fields{"added": added, "removed": removed}).Debug("pool scaled")
	}
}

// sweepTimeouts marks every timed-out running task terminally failed and
// unblocks its dependents. Per spec.md §7, a TaskTimeout is never retried,
// unlike an ordinary TaskExecutionError.
func (e *Executor) sweepTimeouts(log *logrus.Entry) {
	for _, id := range e.queue.CheckTimeouts() {
		e.queue.MarkTimedOut(id)
		e.graphMu.Lock()
		e.graph.MarkFailed(id, true)
		e.graphMu.Unlock()
		e.metrics.RecordTaskFailed(0)
		log.WithField("task_id", id).Warn("task timed out")
	}
}

func summarize(results map[string]*taskcore.TaskResult) (completed, failed int, durations []float64) {
	for _, r := range results {
		if r == nil {
			continue
		}
		durations = append(durations, float64(r.DurationMs))
		if r.Success {
			completed++
		} else {
			failed++
		}
	}
	return completed, failed, durations
}

func sumDurations(durations []float64) float64 {
	var sum float64
	for _, d := range durations {
		sum += d
	}
	return sum
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
