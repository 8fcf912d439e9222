package graph

import "sort"

// CriticalPath returns the longest dependency chain (by canonical id from a
// source to a sink), computed over the graph's static structure.
//
// weights optionally supplies a per-task duration; tasks absent from weights
// count as 1. Ties in total path weight are broken deterministically by
// preferring the lexicographically smaller next id at each step.
//
// The implementation is a memoized longest-path walk in topological order,
// so each node's best distance is computed exactly once.
func (g *Graph) CriticalPath(weights map[string]float64) []string {
	if len(g.ids) == 0 {
		return nil
	}

	order := g.topoOrder()
	dist := make([]float64, len(g.ids))
	next := make([]int, len(g.ids))
	for i := range next {
		next[i] = -1
	}

	weightOf := func(idx int) float64 {
		if w, ok := weights[g.ids[idx]]; ok {
			return w
		}
		return 1
	}

	// Process in reverse topological order so each node's best downstream
	// distance is already known when we visit it.
	for i := len(order) - 1; i >= 0; i-- {
		u := order[i]
		best := 0.0
		bestNext := -1
		// outIdx is sorted ascending by canonical index, which is sorted-id
		// order; iterate to find the max, preferring the smallest id on ties.
		for _, v := range g.outIdx[u] {
			cand := weightOf(v) + dist[v]
			if cand > best || (cand == best && bestNext != -1 && g.ids[v] < g.ids[bestNext]) {
				best = cand
				bestNext = v
			}
		}
		dist[u] = best
		next[u] = bestNext
	}

	bestStart := -1
	bestTotal := -1.0
	for _, u := range order {
		total := weightOf(u) + dist[u]
		if total > bestTotal || (total == bestTotal && (bestStart == -1 || g.ids[u] < g.ids[bestStart])) {
			bestTotal = total
			bestStart = u
		}
	}
	if bestStart == -1 {
		return nil
	}

	var path []string
	for cur := bestStart; cur != -1; cur = next[cur] {
		path = append(path, g.ids[cur])
	}
	return path
}

// topoOrder returns a deterministic topological ordering of canonical
// indices (ascending id order among equally-ready nodes).
func (g *Graph) topoOrder() []int {
	indeg := make([]int, len(g.ids))
	for i := range g.ids {
		indeg[i] = len(g.inIdx[i])
	}
	var ready []int
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	out := make([]int, 0, len(g.ids))
	for len(ready) > 0 {
		u := ready[0]
		ready = ready[1:]
		out = append(out, u)
		for _, v := range g.outIdx[u] {
			indeg[v]--
			if indeg[v] == 0 {
				ready = append(ready, v)
				sort.Ints(ready)
			}
		}
	}
	return out
}
