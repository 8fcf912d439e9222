// Package locks implements the Resource Lock Manager (C3): advisory
// read/write locking over arbitrary resource ids, with TTL-based eviction,
// crash cleanup, and a bounded history of value-copied snapshots.
//
// Snapshot/rollback follows the teacher's rule of persisting value copies
// keyed by an identifier rather than live references (internal/recovery/state
// persists one run's state per run id on disk; here the "run id" is an
// in-memory monotonic snapshot sequence, bounded to the last 100 — there is
// no filesystem persistence, since durable persistence is out of scope).
package locks
