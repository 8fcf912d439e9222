package graph

import (
	"container/heap"
	"sort"

	"github.com/taskforge/taskforge/internal/taskcore"
)

// DependencyNode is the mutable per-task view the resolver maintains.
//
// Dependencies is a live set: it shrinks as dependencies complete, and a
// failed-with-unblock dependency is spliced out directly. Dependents is the
// static reverse-edge set computed once at BuildGraph time.
type DependencyNode struct {
	TaskID       string
	Dependencies map[string]struct{}
	Dependents   map[string]struct{}
	Completed    bool
	InProgress   bool
	Failed       bool
}

type edge struct{ from, to int }

// Graph is the Dependency Resolver's owned DAG. It is not safe for
// concurrent use without external synchronization; the Executor is the
// only caller and serializes access to it, per the engine's single-monitor
// concurrency model.
type Graph struct {
	nodes map[string]*DependencyNode

	// ids is the canonical, sorted order of task IDs, used everywhere
	// traversal order must be deterministic.
	ids     []string
	index   map[string]int
	outIdx  [][]int // static outgoing edges (from -> dependents), by canonical index, sorted
	inIdx   [][]int // static incoming edges (from -> dependencies), by canonical index, sorted
}

// BuildGraph constructs the DAG from the plan's tasks. It is the only fatal
// operation in this package: it fails with *CycleError if the dependency
// relation is not acyclic, and no task is considered started in that case.
func BuildGraph(tasks []taskcore.Task) (*Graph, error) {
	ids := make([]string, 0, len(tasks))
	byID := make(map[string]taskcore.Task, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	sort.Strings(ids)

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	edges := make([]edge, 0)
	nodes := make(map[string]*DependencyNode, len(ids))
	for _, id := range ids {
		nodes[id] = &DependencyNode{
			TaskID:       id,
			Dependencies: make(map[string]struct{}),
			Dependents:   make(map[string]struct{}),
		}
	}
	for _, id := range ids {
		for _, dep := range byID[id].Dependencies {
			if _, ok := index[dep]; !ok {
				// Unknown dependency ids are ignored: queries on unknown ids
				// return empty results rather than raising, per §4.1.
				continue
			}
			nodes[id].Dependencies[dep] = struct{}{}
			nodes[dep].Dependents[id] = struct{}{}
			edges = append(edges, edge{from: index[dep], to: index[id]})
		}
	}

	outIdx := make([][]int, len(ids))
	inIdx := make([][]int, len(ids))
	for _, e := range edges {
		outIdx[e.from] = append(outIdx[e.from], e.to)
		inIdx[e.to] = append(inIdx[e.to], e.from)
	}
	for i := range outIdx {
		sort.Ints(outIdx[i])
		sort.Ints(inIdx[i])
	}

	g := &Graph{nodes: nodes, ids: ids, index: index, outIdx: outIdx, inIdx: inIdx}

	if cycles := g.findCycles(); len(cycles) > 0 {
		return nil, &CycleError{Cycles: cycles}
	}
	return g, nil
}

// Node returns the node for id, or nil if id is unknown.
func (g *Graph) Node(id string) *DependencyNode {
	return g.nodes[id]
}

// ReadyTasks partitions all non-terminal nodes into ready and blocked sets.
// A node is ready iff it is not completed/failed/in-progress and its live
// Dependencies set is empty. Order is canonical (sorted by id).
func (g *Graph) ReadyTasks() (ready, blocked []string) {
	for _, id := range g.ids {
		n := g.nodes[id]
		if n.Completed || n.Failed || n.InProgress {
			continue
		}
		if len(n.Dependencies) == 0 {
			ready = append(ready, id)
		} else {
			blocked = append(blocked, id)
		}
	}
	return ready, blocked
}

// MarkStarted flags id as in-progress. Unknown ids are a no-op.
func (g *Graph) MarkStarted(id string) {
	if n := g.nodes[id]; n != nil {
		n.InProgress = true
	}
}

// MarkCompleted flags id completed and removes it from the live Dependencies
// set of every dependent, potentially making them ready. A no-op if id was
// already flagged failed (e.g. a timeout sweep beat the runner's own
// completion to the punch).
func (g *Graph) MarkCompleted(id string) {
	n := g.nodes[id]
	if n == nil || n.Failed {
		return
	}
	n.Completed = true
	n.InProgress = false
	for dep := range n.Dependents {
		delete(g.nodes[dep].Dependencies, id)
	}
}

// MarkRetry clears id's in-progress flag without marking it completed or
// failed, so a subsequent ReadyTasks call reports it ready again once its
// queue-side status has been requeued. Unknown ids are a no-op.
func (g *Graph) MarkRetry(id string) {
	if n := g.nodes[id]; n != nil {
		n.InProgress = false
	}
}

// MarkFailed flags id failed. When unblockDependents is true, id is spliced
// out of every dependent's live Dependencies set so the DAG can continue
// without it; once unblocked, dependents stay unblocked even if a later
// retry of id succeeds (per spec.md §9's recommended semantics).
func (g *Graph) MarkFailed(id string, unblockDependents bool) {
	n := g.nodes[id]
	if n == nil || n.Completed || n.Failed {
		return
	}
	n.Failed = true
	n.InProgress = false
	if unblockDependents {
		for dep := range n.Dependents {
			delete(g.nodes[dep].Dependencies, id)
		}
	}
}

// DependencyTree returns all transitive predecessors of id (excluding id
// itself), computed over the graph's static structure regardless of runtime
// completion state. Unknown ids return an empty set.
func (g *Graph) DependencyTree(id string) map[string]struct{} {
	out := make(map[string]struct{})
	start, ok := g.index[id]
	if !ok {
		return out
	}
	visited := make([]bool, len(g.ids))
	var walk func(idx int)
	walk = func(idx int) {
		for _, p := range g.inIdx[idx] {
			if visited[p] {
				continue
			}
			visited[p] = true
			out[g.ids[p]] = struct{}{}
			walk(p)
		}
	}
	walk(start)
	return out
}

// ParallelizableGroups performs Kahn-style leveling restricted to ids:
// repeatedly emits the subset of ids whose dependencies within ids are
// already emitted, stopping when a round emits nothing (e.g. because the
// remaining ids depend on something outside the set, or are unknown).
func (g *Graph) ParallelizableGroups(ids []string) [][]string {
	set := make(map[string]struct{}, len(ids))
	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := g.index[id]; !ok {
			continue
		}
		if _, dup := set[id]; dup {
			continue
		}
		set[id] = struct{}{}
		remaining = append(remaining, id)
	}
	sort.Strings(remaining)

	emitted := make(map[string]struct{}, len(remaining))
	var groups [][]string

	for len(remaining) > 0 {
		var level []string
		var next []string
		for _, id := range remaining {
			ready := true
			for dep := range g.originalDeps(id) {
				if _, inSet := set[dep]; !inSet {
					continue // dependency outside the requested set is ignored
				}
				if _, done := emitted[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, id)
			} else {
				next = append(next, id)
			}
		}
		if len(level) == 0 {
			break
		}
		sort.Strings(level)
		groups = append(groups, level)
		for _, id := range level {
			emitted[id] = struct{}{}
		}
		remaining = next
	}
	return groups
}

// originalDeps returns the static (non-shrinking) dependency set for id,
// reconstructed from the static incoming edges.
func (g *Graph) originalDeps(id string) map[string]struct{} {
	out := make(map[string]struct{})
	idx, ok := g.index[id]
	if !ok {
		return out
	}
	for _, p := range g.inIdx[idx] {
		out[g.ids[p]] = struct{}{}
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// findCycles runs Kahn's algorithm to check acyclicity; if nodes remain
// unordered, it extracts deterministic witness cycles (one per remaining
// strongly-connected root, bounded at 16) via DFS over canonical indices.
func (g *Graph) findCycles() [][]string {
	indeg := make([]int, len(g.ids))
	for i := range g.ids {
		indeg[i] = len(g.inIdx[i])
	}
	ready := &intMinHeap{}
	heap.Init(ready)
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}
	ordered := 0
	for ready.Len() > 0 {
		u := heap.Pop(ready).(int)
		ordered++
		for _, v := range g.outIdx[u] {
			indeg[v]--
			if indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	if ordered == len(g.ids) {
		return nil
	}

	remaining := make(map[int]bool)
	for i, d := range indeg {
		if d > 0 {
			remaining[i] = true
		}
	}

	var cycles [][]string
	const maxCycles = 16
	for len(remaining) > 0 && len(cycles) < maxCycles {
		witness := g.findOneCycle(remaining)
		if len(witness) == 0 {
			break
		}
		names := make([]string, len(witness))
		for i, idx := range witness {
			names[i] = g.ids[idx]
			delete(remaining, idx)
		}
		cycles = append(cycles, names)
	}
	return cycles
}

// findOneCycle runs a deterministic DFS restricted to nodes in remaining and
// returns one cycle's node indices in forward order, or nil if none found.
func (g *Graph) findOneCycle(remaining map[int]bool) []int {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int]int, len(remaining))
	parent := make(map[int]int, len(remaining))

	order := make([]int, 0, len(remaining))
	for idx := range remaining {
		order = append(order, idx)
	}
	sort.Ints(order)

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outIdx[u] {
			if !remaining[v] {
				continue
			}
			if color[v] == white || color[v] == 0 {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				cur := u
				for {
					cycle = append(cycle, cur)
					if cur == v {
						break
					}
					p, ok := parent[cur]
					if !ok {
						break
					}
					cur = p
				}
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, idx := range order {
		if color[idx] != white {
			continue
		}
		if dfs(idx) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}
	rev := make([]int, len(cycle))
	for i := range cycle {
		rev[i] = cycle[len(cycle)-1-i]
	}
	return rev
}
