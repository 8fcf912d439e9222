// Package pool implements the Worker Pool (C5): a fixed-identity set of
// workers that execute tasks via an injected taskcore.TaskRunner, exposing
// idle-worker selection, synchronous task assignment, bounds-respecting
// scaling, and a stuck-worker health sweep.
//
// Status transitions (idle -> busy -> idle) are guarded by the pool's own
// sync.Mutex, the same dispatch-loop shape as the teacher's RunParallel
// (internal/dag/executor.go): a coordinator holds the lock only across
// state reads/writes, and runs task execution itself outside the lock.
package pool
