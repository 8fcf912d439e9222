package queue

import "time"

// Config enumerates the queue's construction-time options. Every field has
// the default spec.md §6 specifies; nothing is read from process-wide state.
type Config struct {
	MaxConcurrentTasks int
	PriorityScheduling bool
	RetryFailedTasks   bool
	MaxRetries         int
	TaskTimeout        time.Duration
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentTasks: 3,
		PriorityScheduling: true,
		RetryFailedTasks:   true,
		MaxRetries:         2,
		TaskTimeout:        5 * time.Minute,
	}
}
