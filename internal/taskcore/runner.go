package taskcore

import "context"

// TaskRunner executes the domain-specific work of a single task. It is
// supplied by the embedder and must be safe to invoke concurrently from
// multiple worker goroutines.
//
// Run should honor ctx cancellation promptly: the engine detaches from a
// task once its timeout elapses, but it is Run's responsibility to observe
// ctx.Done() and return rather than run forever.
type TaskRunner interface {
	Run(ctx context.Context, task Task, plan *ExecutionPlan) (*TaskResult, error)
}

// TaskResult is the structured outcome of one TaskRunner.Run invocation.
type TaskResult struct {
	TaskID        string
	Success       bool
	StartTime     int64 // unix nanos
	EndTime       int64 // unix nanos
	DurationMs    int64
	Error         string
	FilesCreated  []string
	FilesModified []string
}

// TaskRunnerFunc adapts a plain function to the TaskRunner interface.
type TaskRunnerFunc func(ctx context.Context, task Task, plan *ExecutionPlan) (*TaskResult, error)

func (f TaskRunnerFunc) Run(ctx context.Context, task Task, plan *ExecutionPlan) (*TaskResult, error) {
	return f(ctx, task, plan)
}
