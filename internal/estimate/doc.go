// Package estimate implements the Time Estimator (C8): a bounded history of
// past task durations keyed by (agent, complexity), used to produce a
// weighted-moving-average estimate with a confidence band, and to project
// total remaining execution time.
//
// Ring buffers are fixed-capacity slices with a write cursor, the same
// shape as the teacher's bounded collections in internal/recovery/state
// (bounded by count there rather than time, but the same write-cursor
// idiom).
package estimate
