package executor

import (
	"time"

	"github.com/taskforge/taskforge/internal/events"
	"github.com/taskforge/taskforge/internal/pool"
	"github.com/taskforge/taskforge/internal/progress"
	"github.com/taskforge/taskforge/internal/taskcore"
)

// Result is the ExecutionResult produced by one Execute call.
type Result struct {
	RunID      string
	Success    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration

	CompletedTasks int
	FailedTasks    int

	TaskResults map[string]*taskcore.TaskResult

	Events              []events.Event
	ParallelismTimeline []progress.TimelinePoint
	AverageParallelism  float64
	PeakParallelism     int

	Throughput            float64
	AverageTaskDurationMs float64
	WorkerUtilization     float64
	ParallelismEfficiency float64

	WorkerStats []pool.Worker
}

// summarizeParallelism reduces a parallelism timeline into its peak value
// and its time-weighted average across the run's wall-clock span.
func summarizeParallelism(points []progress.TimelinePoint, runStart, runEnd time.Time) (avg float64, peak int) {
	if len(points) == 0 {
		return 0, 0
	}
	prevAt := runStart
	prevLevel := 0
	var weightedSum, totalSpan float64
	for _, p := range points {
		span := p.At.Sub(prevAt).Seconds()
		if span > 0 {
			weightedSum += float64(prevLevel) * span
			totalSpan += span
		}
		if prevLevel > peak {
			peak = prevLevel
		}
		prevAt = p.At
		prevLevel = p.Parallelism
	}
	if prevLevel > peak {
		peak = prevLevel
	}
	if span := runEnd.Sub(prevAt).Seconds(); span > 0 {
		weightedSum += float64(prevLevel) * span
		totalSpan += span
	}
	if totalSpan == 0 {
		return float64(peak), peak
	}
	return weightedSum / totalSpan, peak
}
