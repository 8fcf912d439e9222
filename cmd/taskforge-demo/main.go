// Command taskforge-demo drives the execution engine against a JSON plan
// file from the command line, the way the build-cache CLI this repo is
// descended from drove a content-addressable graph build.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/taskforge/taskforge/internal/executor"
	"github.com/taskforge/taskforge/internal/schedule"
	"github.com/taskforge/taskforge/internal/taskcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskforge-demo",
		Short: "Run a JSON task plan through the parallel execution engine",
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}

func newRunCommand() *cobra.Command {
	var (
		planPath   string
		strategy   string
		autoscale  bool
		minWorkers int
		maxWorkers int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a task plan from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(planPath)
			if err != nil {
				return fmt.Errorf("load plan: %w", err)
			}

			logger := logrus.New()
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
			}
			logger.SetLevel(level)
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			cfg := executor.DefaultConfig()
			cfg.EnableAutoScale = autoscale
			if minWorkers > 0 {
				cfg.Pool.MinWorkers = minWorkers
				cfg.Autoscale.MinWorkers = minWorkers
			}
			if maxWorkers > 0 {
				cfg.Pool.MaxWorkers = maxWorkers
				cfg.Autoscale.MaxWorkers = maxWorkers
			}
			if strategy != "" {
				cfg.Strategy = schedule.Strategy(strategy)
			}

			ex := executor.New(cfg, demoRunner{}, logger)
			res, err := ex.Execute(context.Background(), plan)
			if err != nil {
				return fmt.Errorf("execute: %w", err)
			}

			fmt.Printf("run %s: success=%v duration=%s throughput=%.2f tasks/min\n",
				res.RunID, res.Success, res.Duration, res.Throughput)
			for id, tr := range res.TaskResults {
				status := "ok"
				if !tr.Success {
					status = "failed: " + tr.Error
				}
				fmt.Printf("  %-20s %s (%dms)\n", id, status, tr.DurationMs)
			}
			if !res.Success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Path to a JSON task plan (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Scheduling strategy override (fifo|priority|shortest_job_first|critical_path|round_robin|workload_balanced)")
	cmd.Flags().BoolVar(&autoscale, "autoscale", true, "Enable the auto-scaler during this run")
	cmd.Flags().IntVar(&minWorkers, "min-workers", 0, "Override minimum worker count")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Override maximum worker count")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Logging level (debug|info|warn|error)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func loadPlan(path string) (*taskcore.ExecutionPlan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan taskcore.ExecutionPlan
	if err := json.Unmarshal(b, &plan); err != nil {
		return nil, fmt.Errorf("parse plan json: %w", err)
	}
	return &plan, nil
}

// demoRunner is a placeholder TaskRunner so the demo has something to
// schedule without requiring a real embedder-supplied runner. It does no
// work: it reports success immediately, or failure if ctx is already done.
type demoRunner struct{}

func (demoRunner) Run(ctx context.Context, task taskcore.Task, plan *taskcore.ExecutionPlan) (*taskcore.TaskResult, error) {
	start := time.Now()
	select {
	case <-ctx.Done():
		return &taskcore.TaskResult{TaskID: task.ID, Success: false, Error: ctx.Err().Error()}, nil
	default:
	}
	end := time.Now()
	return &taskcore.TaskResult{
		TaskID:     task.ID,
		Success:    true,
		StartTime:  start.UnixNano(),
		EndTime:    end.UnixNano(),
		DurationMs: end.Sub(start).Milliseconds(),
	}, nil
}
