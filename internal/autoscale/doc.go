// Package autoscale implements the Auto-Scaler (C6): a pure delta
// calculator that observes pool, queue, and idle-duration state and
// recommends how many workers to add or remove, subject to a cooldown.
//
// The mutex-guarded idle-duration map reuses the same monitor idiom as
// internal/queue and internal/pool's own state maps.
package autoscale
