// Package progress implements the Progress Aggregator (C7): a set of pure
// functions deriving throughput, utilization, and remaining-time figures
// from a read-only snapshot of queue, worker, and event state.
//
// It follows the teacher's trace package's read-only snapshot pattern
// (internal/trace/recorder.go's Snapshot()): nothing here mutates the
// inputs it is handed.
package progress
