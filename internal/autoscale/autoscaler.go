package autoscale

import (
	"math"
	"sync"
	"time"
)

// WorkerState is the minimal per-worker fact Evaluate needs: whether the
// worker is currently busy. It deliberately does not import internal/pool,
// so the controller is the only thing that bridges the two components.
type WorkerState struct {
	ID   string
	Busy bool
}

// Scaler is the Auto-Scaler (C6) monitor.
type Scaler struct {
	mu sync.Mutex

	cfg        Config
	idleSince  map[string]time.Time
	lastAction time.Time

	now func() time.Time
}

// New creates a Scaler under cfg.
func New(cfg Config) *Scaler {
	return &Scaler{
		cfg:       cfg,
		idleSince: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Evaluate recomputes idle tracking from workers and returns the signed
// worker-count delta the pool should apply. A positive delta means grow, a
// negative delta means shrink by that many idle workers, and zero means no
// change (including during cooldown).
func (s *Scaler) Evaluate(workers []WorkerState, queuedCount int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lastAction.IsZero() && now.Sub(s.lastAction) < s.cfg.Cooldown {
		return 0
	}

	seen := make(map[string]struct{}, len(workers))
	busyCount := 0
	idleCount := 0
	for _, w := range workers {
		seen[w.ID] = struct{}{}
		if w.Busy {
			busyCount++
			delete(s.idleSince, w.ID)
			continue
		}
		idleCount++
		if _, ok := s.idleSince[w.ID]; !ok {
			s.idleSince[w.ID] = now
		}
	}
	for id := range s.idleSince {
		if _, ok := seen[id]; !ok {
			delete(s.idleSince, id)
		}
	}

	current := len(workers)

	if queuedCount >= s.cfg.ScaleUpThreshold && current < s.cfg.MaxWorkers {
		denom := busyCount
		if denom < 1 {
			denom = 1
		}
		delta := int(math.Ceil(float64(queuedCount) / float64(denom)))
		if room := s.cfg.MaxWorkers - current; delta > room {
			delta = room
		}
		if delta > 0 {
			s.lastAction = now
			return delta
		}
	}

	if current > 0 && busyCount == current && queuedCount > 0 && current < s.cfg.MaxWorkers {
		s.lastAction = now
		return 1
	}

	longIdle := 0
	for _, since := range s.idleSince {
		if now.Sub(since) >= s.cfg.ScaleDownThreshold {
			longIdle++
		}
	}
	if longIdle > 0 && current > s.cfg.MinWorkers {
		delta := longIdle
		if room := current - s.cfg.MinWorkers; delta > room {
			delta = room
		}
		s.lastAction = now
		return -delta
	}

	return 0
}

// OptimalWorkerCount returns the worker count in [1, maxWorkers] that
// minimizes seqTimeMs + ceil(parallelTasks/workers)*avgDurationMs, the
// estimated wall-clock time given a strictly sequential portion of the
// graph (seqTimeMs) plus a parallelizable remainder. Ties prefer the
// smaller worker count.
func OptimalWorkerCount(parallelTasks int, seqTimeMs, avgDurationMs float64, maxWorkers int) int {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	best := 1
	bestCost := math.Inf(1)
	for w := 1; w <= maxWorkers; w++ {
		waves := math.Ceil(float64(parallelTasks) / float64(w))
		cost := seqTimeMs + waves*avgDurationMs
		if cost < bestCost {
			bestCost = cost
			best = w
		}
	}
	return best
}
