// Package graph implements the Dependency Resolver (C1): it owns the task
// DAG, detects cycles at construction, partitions tasks into ready/blocked
// sets, and answers structural queries (critical path, transitive
// predecessors, parallelizable levels).
//
// It is adapted from the teacher's internal/dag package: the same
// canonical-ordering-plus-min-heap determinism discipline for cycle
// detection and traversal, generalized from an immutable build-cache DAG to
// a DAG whose per-node dependency set shrinks at runtime as dependencies
// complete or are spliced out after a final failure.
package graph
