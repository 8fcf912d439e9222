// Package schedule implements the Scheduler (C4): selecting which ready
// task a newly idle worker should run next, under one of six strategies.
//
// Select is a pure function of its arguments, mirroring the purity of the
// teacher's GetReadyTasks(g *TaskGraph, state ExecutionState) []string
// (internal/dag/scheduler.go): no hidden state, fully unit-testable without
// constructing a pool or graph.
package schedule
