package schedule

// Strategy names one of the six selection policies Select can apply.
type Strategy string

const (
	FIFO              Strategy = "fifo"
	Priority          Strategy = "priority"
	ShortestJobFirst  Strategy = "shortest_job_first"
	CriticalPath      Strategy = "critical_path"
	RoundRobin        Strategy = "round_robin"
	WorkloadBalanced  Strategy = "workload_balanced"
	DefaultStrategy            = WorkloadBalanced
)

// WorkerInfo is the slice of worker state Select needs,
// kept deliberately narrow so this package never imports internal/pool.
type WorkerInfo struct {
	ID              string
	TasksCompleted  int
	TasksFailed     int
}

// Load is tasksCompleted + tasksFailed, the workload figure WorkloadBalanced
// compares against the pool average.
func (w WorkerInfo) Load() int {
	return w.TasksCompleted + w.TasksFailed
}
