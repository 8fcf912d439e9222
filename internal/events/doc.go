// Package events implements the append-only, bounded ExecutionEvent log
// shared by the task queue and the worker pool.
//
// It is adapted from the teacher's internal/trace package: the same
// concurrency-safe Sink/Recorder/SafeRecord shape, but sized for runtime
// telemetry rather than deterministic build-cache traces. Event content here
// carries real timestamps and is never hashed or canonicalized — the
// invariant this package keeps is boundedness and total order within an
// emitter, not byte-for-byte reproducibility.
package events
