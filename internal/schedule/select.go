package schedule

import (
	"math"
	"sort"

	"github.com/taskforge/taskforge/internal/queue"
)

// Select picks which of readyTasks the given worker should run next, under
// strategy. It is a pure function: readyTasks, worker, and allWorkers are
// read-only inputs, and the result is always one of readyTasks (or nil if
// readyTasks is empty).
func Select(strategy Strategy, readyTasks []queue.QueuedTask, worker WorkerInfo, allWorkers []WorkerInfo, est DurationEstimator) *queue.QueuedTask {
	if len(readyTasks) == 0 {
		return nil
	}
	if est == nil {
		est = NoHistoryEstimator()
	}

	ordered := sortedByEnqueueOrder(readyTasks)

	switch strategy {
	case FIFO:
		return &ordered[0]
	case Priority:
		return pick(ordered, byPriority)
	case ShortestJobFirst:
		return pick(ordered, byDuration(est, true))
	case CriticalPath:
		return pick(ordered, byDependents(est))
	case RoundRobin:
		return roundRobin(ordered, worker, allWorkers)
	case WorkloadBalanced:
		fallthrough
	default:
		return workloadBalanced(ordered, worker, allWorkers, est)
	}
}

// sortedByEnqueueOrder establishes the deterministic tie-break baseline:
// earliest queuedAt, then lexicographic task id.
func sortedByEnqueueOrder(tasks []queue.QueuedTask) []queue.QueuedTask {
	out := append([]queue.QueuedTask(nil), tasks...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].QueuedAt.Before(out[j].QueuedAt)
		}
		return out[i].Task.ID < out[j].Task.ID
	})
	return out
}

// pick returns the element of ordered that sorts first under less, with
// ordered's own order as the final tie-break (stable).
func pick(ordered []queue.QueuedTask, less func(a, b queue.QueuedTask) bool) *queue.QueuedTask {
	best := ordered[0]
	for _, t := range ordered[1:] {
		if less(t, best) {
			best = t
		}
	}
	return &best
}

func byPriority(a, b queue.QueuedTask) bool {
	return a.PriorityBucket.Weight() > b.PriorityBucket.Weight()
}

func byDuration(est DurationEstimator, ascending bool) func(a, b queue.QueuedTask) bool {
	return func(a, b queue.QueuedTask) bool {
		da, db := est.EstimateDurationMs(a), est.EstimateDurationMs(b)
		if ascending {
			return da < db
		}
		return da > db
	}
}

func byDependents(est DurationEstimator) func(a, b queue.QueuedTask) bool {
	return func(a, b queue.QueuedTask) bool {
		da, db := len(a.Dependents), len(b.Dependents)
		if da != db {
			return da > db
		}
		return est.EstimateDurationMs(a) > est.EstimateDurationMs(b)
	}
}

func roundRobin(ordered []queue.QueuedTask, worker WorkerInfo, allWorkers []WorkerInfo) *queue.QueuedTask {
	workerIdx := indexOfWorker(worker, allWorkers)
	if workerIdx < 0 || len(allWorkers) == 0 {
		return &ordered[0]
	}
	t := ordered[workerIdx%len(ordered)]
	return &t
}

func indexOfWorker(worker WorkerInfo, allWorkers []WorkerInfo) int {
	sorted := append([]WorkerInfo(nil), allWorkers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for i, w := range sorted {
		if w.ID == worker.ID {
			return i
		}
	}
	return -1
}

func workloadBalanced(ordered []queue.QueuedTask, worker WorkerInfo, allWorkers []WorkerInfo, est DurationEstimator) *queue.QueuedTask {
	avg := averageLoad(allWorkers)
	switch {
	case avg > 0 && float64(worker.Load()) < 0.8*avg:
		return pick(ordered, byDuration(est, false))
	case avg > 0 && float64(worker.Load()) > 1.2*avg:
		return pick(ordered, byDuration(est, true))
	default:
		return pick(ordered, byPriority)
	}
}

func averageLoad(workers []WorkerInfo) float64 {
	if len(workers) == 0 {
		return 0
	}
	total := 0
	for _, w := range workers {
		total += w.Load()
	}
	return float64(total) / float64(len(workers))
}

// RecommendStrategy auto-selects a strategy from the composition of tasks,
// per the heuristics in spec: high dependency ratio favors CriticalPath,
// a heavy critical/high priority mix favors Priority, high duration
// variance favors ShortestJobFirst, otherwise WorkloadBalanced.
func RecommendStrategy(tasks []queue.QueuedTask, est DurationEstimator) Strategy {
	if len(tasks) == 0 {
		return DefaultStrategy
	}
	if est == nil {
		est = NoHistoryEstimator()
	}

	withDeps := 0
	highPriority := 0
	durations := make([]float64, 0, len(tasks))
	for _, t := range tasks {
		if len(t.Task.Dependencies) > 0 {
			withDeps++
		}
		if t.PriorityBucket.Weight() >= 75 {
			highPriority++
		}
		durations = append(durations, est.EstimateDurationMs(t))
	}

	n := float64(len(tasks))
	if float64(withDeps)/n > 0.5 {
		return CriticalPath
	}
	if float64(highPriority)/n > 0.3 {
		return Priority
	}
	if stdDev(durations) > 0.5*mean(durations) {
		return ShortestJobFirst
	}
	return WorkloadBalanced
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
