package estimate

import (
	"github.com/taskforge/taskforge/internal/queue"
)

// Complexity buckets a task for the purpose of keying duration history.
type Complexity string

const (
	Simple   Complexity = "simple"
	Moderate Complexity = "moderate"
	Complex  Complexity = "complex"
)

// InferComplexity classifies qt from its dependency count and priority
// bucket: no dependencies and a low priority bucket is simple; more than
// three dependencies or a critical bucket is complex; everything else is
// moderate.
func InferComplexity(qt queue.QueuedTask) Complexity {
	deps := len(qt.Task.Dependencies)
	switch {
	case deps > 3 || qt.PriorityBucket == queue.BucketCritical:
		return Complex
	case deps == 0 && qt.PriorityBucket == queue.BucketLow:
		return Simple
	default:
		return Moderate
	}
}

// Confidence reflects how many samples backed an Estimate.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func confidenceFor(samples int) Confidence {
	switch {
	case samples < 5:
		return ConfidenceLow
	case samples < 15:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// Estimate is the result of estimating one task's duration.
type Estimate struct {
	EstimatedMs float64
	LowMs       float64
	HighMs      float64
	Confidence  Confidence
}

// key identifies one duration history bucket.
type key struct {
	agent      string
	complexity Complexity
}
