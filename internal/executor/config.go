package executor

import (
	"time"

	"github.com/taskforge/taskforge/internal/autoscale"
	"github.com/taskforge/taskforge/internal/pool"
	"github.com/taskforge/taskforge/internal/queue"
	"github.com/taskforge/taskforge/internal/schedule"
)

// Config aggregates every component's construction-time options under one
// root so a caller building an Executor never reads process-wide state.
type Config struct {
	Queue     queue.Config
	Pool      pool.Config
	Autoscale autoscale.Config

	// EnableAutoScale turns on periodic autoscale.Scaler.Evaluate calls
	// against the live pool. When false the pool stays at its initial size
	// for the whole run.
	EnableAutoScale bool

	// Strategy selects the scheduling policy Select uses. Leave empty to
	// have the executor call schedule.RecommendStrategy once per run.
	Strategy schedule.Strategy

	// LockTTL is a configured hold duration for advisory locks. The executor
	// does not read it or pass it to the lock manager: every
	// locks.Manager.Acquire call supplies its own TTL.
	LockTTL time.Duration

	// PollInterval is the cooperative sleep used whenever no worker or no
	// ready task is immediately available.
	PollInterval time.Duration

	// EstimatorHistory is the per-(agent,complexity) ring buffer capacity.
	EstimatorHistory int
}

// DefaultConfig returns every component's spec-mandated defaults composed
// together.
func DefaultConfig() Config {
	return Config{
		Queue:            queue.DefaultConfig(),
		Pool:             pool.DefaultConfig(),
		Autoscale:        autoscale.DefaultConfig(),
		EnableAutoScale:  false,
		LockTTL:          5 * time.Minute,
		PollInterval:     100 * time.Millisecond,
		EstimatorHistory: 20,
	}
}
