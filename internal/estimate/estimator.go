package estimate

import (
	"math"
	"sync"

	"github.com/taskforge/taskforge/internal/queue"
)

// Estimator is the Time Estimator (C8) monitor.
type Estimator struct {
	mu        sync.Mutex
	capacity  int
	histories map[key]*ring
}

// New creates an Estimator whose per-key history holds up to capacity
// samples (DefaultCapacity when capacity <= 0).
func New(capacity int) *Estimator {
	return &Estimator{
		capacity:  capacity,
		histories: make(map[key]*ring),
	}
}

// Record appends one observed duration (milliseconds) to the history for
// (agent, complexity).
func (e *Estimator) Record(agent string, complexity Complexity, durationMs float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := key{agent: agent, complexity: complexity}
	r, ok := e.histories[k]
	if !ok {
		r = newRing(e.capacity)
		e.histories[k] = r
	}
	r.add(durationMs)
}

// EstimateDurationMs implements schedule.DurationEstimator: a weighted
// moving average over (agent, complexity) history, falling back to the
// task's own EstimatedMinutes when no history exists yet.
func (e *Estimator) EstimateDurationMs(qt queue.QueuedTask) float64 {
	return e.Estimate(qt).EstimatedMs
}

// Estimate computes a weighted moving average (recent samples weighted more
// heavily), a one-standard-deviation confidence band, and a qualitative
// confidence label from the sample count.
func (e *Estimator) Estimate(qt queue.QueuedTask) Estimate {
	e.mu.Lock()
	samples := e.samplesFor(qt)
	e.mu.Unlock()

	if len(samples) == 0 {
		fallback := qt.Task.EstimatedMinutes * 60000
		return Estimate{EstimatedMs: fallback, LowMs: fallback, HighMs: fallback, Confidence: ConfidenceLow}
	}

	wma := weightedMovingAverage(samples)
	sd := stdDev(samples, wma)
	return Estimate{
		EstimatedMs: wma,
		LowMs:       math.Max(0, wma-sd),
		HighMs:      wma + sd,
		Confidence:  confidenceFor(len(samples)),
	}
}

func (e *Estimator) samplesFor(qt queue.QueuedTask) []float64 {
	k := key{agent: qt.Task.Agent, complexity: InferComplexity(qt)}
	r, ok := e.histories[k]
	if !ok {
		return nil
	}
	return r.ordered()
}

// weightedMovingAverage weights samples linearly, most recent highest.
func weightedMovingAverage(samples []float64) float64 {
	var weightedSum, weightTotal float64
	for i, v := range samples {
		weight := float64(i + 1)
		weightedSum += v * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	return weightedSum / weightTotal
}

func stdDev(samples []float64, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range samples {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(samples)))
}
