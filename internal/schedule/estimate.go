package schedule

import (
	"github.com/taskforge/taskforge/internal/queue"
)

// DurationEstimator supplies estimateDuration's weighted-moving-average
// lookup. internal/estimate implements this; Select accepts the interface
// instead of importing internal/estimate directly, so the two packages can
// be tested and evolved independently.
type DurationEstimator interface {
	EstimateDurationMs(task queue.QueuedTask) float64
}

// fallbackEstimator is used when the caller has no history-backed estimator
// to inject (e.g. unit tests, or a cold start before any task has run).
type fallbackEstimator struct{}

func (fallbackEstimator) EstimateDurationMs(task queue.QueuedTask) float64 {
	if task.Task.EstimatedMinutes > 0 {
		return task.Task.EstimatedMinutes * 60000
	}
	return 0
}

// NoHistoryEstimator returns an estimator that always falls back to the
// task's own EstimatedMinutes, with no agent-keyed history.
func NoHistoryEstimator() DurationEstimator { return fallbackEstimator{} }
