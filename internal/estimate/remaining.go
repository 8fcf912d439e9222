package estimate

import (
	"math"
	"time"
)

// EstimateTimeRemaining projects total wall-clock time left given the
// summed estimated duration of every not-yet-completed task (totalWorkMs),
// the number of currently active workers, and the critical-path length
// (in milliseconds) over that same remaining subset. The result is the
// larger of the two lower bounds: the unavoidable critical-path length, and
// the work divided evenly across the active workers.
func EstimateTimeRemaining(totalWorkMs float64, activeWorkers int, criticalPathMs float64) time.Duration {
	if activeWorkers < 1 {
		activeWorkers = 1
	}
	parallelMs := math.Max(criticalPathMs, totalWorkMs/float64(activeWorkers))
	return time.Duration(parallelMs) * time.Millisecond
}
