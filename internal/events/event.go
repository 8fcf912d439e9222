package events

import "time"

// Kind is the stable discriminator for an ExecutionEvent.
type Kind string

const (
	TaskQueued     Kind = "task_queued"
	TaskStarted    Kind = "task_started"
	TaskCompleted  Kind = "task_completed"
	TaskFailed     Kind = "task_failed"
	WorkerStarted  Kind = "worker_started"
	WorkerStopped  Kind = "worker_stopped"
)

// Event is a single append-only log entry.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	TaskID    string
	WorkerID  string
	Details   string

	// emitter and seq are stamped by the Recorder to support the merged
	// timeline's stable tie-break (emitter, then insertion order).
	emitter string
	seq     uint64
}

// Emitter returns the name of the recorder that produced this event.
func (e Event) Emitter() string { return e.emitter }

// Seq returns the monotonically increasing insertion order within Emitter.
func (e Event) Seq() uint64 { return e.seq }
