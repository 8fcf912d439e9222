// Package executor implements the Executor (C10): the single logical
// controller that drives the dependency resolver, task queue, worker pool,
// auto-scaler, lock manager, time estimator, and performance metrics
// collector through one run of an ExecutionPlan.
//
// The main loop follows the same single-controller-plus-concurrent-workers
// shape as the teacher's Executor.RunParallel (internal/dag/executor.go): a
// coordinator goroutine holds no lock across task execution, dispatching
// work onto worker goroutines and joining them with
// golang.org/x/sync/errgroup instead of a hand-rolled WaitGroup, since the
// plan here has no fixed topological "waves" to dispatch in lockstep.
package executor
