package progress

import (
	"math"
	"time"

	"github.com/taskforge/taskforge/internal/events"
)

// Throughput is completed tasks per elapsed minute.
func Throughput(completed int, elapsedMinutes float64) float64 {
	if elapsedMinutes <= 0 {
		return 0
	}
	return float64(completed) / elapsedMinutes
}

// AverageTaskDuration is the mean of a set of completed-task durations.
func AverageTaskDuration(durationsMs []float64) float64 {
	if len(durationsMs) == 0 {
		return 0
	}
	var sum float64
	for _, d := range durationsMs {
		sum += d
	}
	return sum / float64(len(durationsMs))
}

// EstimatedTimeRemainingMs returns remaining*avgDurationMs/max(1,activeWorkers)
// in milliseconds, math.Inf(1) when activeWorkers is 0, and 0 when there is
// no remaining work.
func EstimatedTimeRemainingMs(remaining int, avgDurationMs float64, activeWorkers int) float64 {
	if remaining <= 0 {
		return 0
	}
	if activeWorkers == 0 {
		return math.Inf(1)
	}
	return float64(remaining) * avgDurationMs / float64(activeWorkers)
}

// WorkerUtilization is the fraction of elapsed wall time the pool spent
// busy: sum of per-worker busy intervals divided by (elapsed * workerCount).
func WorkerUtilization(sumBusyMs, elapsedMs float64, workerCount int) float64 {
	if elapsedMs <= 0 || workerCount <= 0 {
		return 0
	}
	return sumBusyMs / (elapsedMs * float64(workerCount))
}

// ParallelismEfficiency is achieved speedup divided by worker count,
// expressed as a percentage in [0, 100] and capped at 100.
func ParallelismEfficiency(completed int, avgDurationMs, elapsedMs float64, workerCount int) float64 {
	if elapsedMs <= 0 || workerCount <= 0 {
		return 0
	}
	eff := (float64(completed) * avgDurationMs / elapsedMs) / float64(workerCount) * 100
	if eff > 100 {
		return 100
	}
	return eff
}

// TimelinePoint is one sample of the parallelism-over-time series.
type TimelinePoint struct {
	At          time.Time
	Parallelism int
}

// ParallelismTimeline walks evts (assumed already in timestamp order, as
// events.Merge produces) and yields a piecewise series: +1 on TaskStarted,
// -1 on TaskCompleted or TaskFailed.
func ParallelismTimeline(evts []events.Event) []TimelinePoint {
	out := make([]TimelinePoint, 0, len(evts))
	running := 0
	for _, e := range evts {
		switch e.Kind {
		case events.TaskStarted:
			running++
		case events.TaskCompleted, events.TaskFailed:
			running--
		default:
			continue
		}
		out = append(out, TimelinePoint{At: e.Timestamp, Parallelism: running})
	}
	return out
}
