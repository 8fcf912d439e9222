package pool

import "time"

// Config enumerates the pool's construction-time options.
type Config struct {
	// WorkerCount is how many workers New starts with when AutoScale is
	// false. When AutoScale is true, New starts at MinWorkers instead (per
	// spec.md §4.5: "up to workerCount workers at start, or minWorkers
	// when auto-scaling").
	WorkerCount int
	AutoScale   bool

	MinWorkers int
	MaxWorkers int

	// IdleTimeout is how long an Idle worker may sit unused. Neither the
	// pool nor the executor reads it; scale-down timing comes only from
	// autoscale.Config.ScaleDownThreshold, which is configured separately.
	IdleTimeout time.Duration

	// StuckThreshold is how long a worker may remain Busy before
	// healthCheck flags it as Error and eligible for reclamation. spec.md
	// hard-codes this at 30 minutes; this module exposes it as config
	// instead.
	StuckThreshold time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    3,
		AutoScale:      false,
		MinWorkers:     1,
		MaxWorkers:     10,
		IdleTimeout:    5 * time.Minute,
		StuckThreshold: 30 * time.Minute,
	}
}
