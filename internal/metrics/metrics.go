package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Performance Metrics instrument for one execution
// run, registered on a private registry so embedding applications choose
// whether and how to scrape it.
type Collector struct {
	registry *prometheus.Registry

	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	taskDuration   prometheus.Histogram

	throughput            prometheus.Gauge
	workerUtilization     prometheus.Gauge
	parallelismEfficiency prometheus.Gauge
	activeWorkers         prometheus.Gauge
	parallelism           prometheus.Gauge

	workerBusyTime *prometheus.CounterVec
}

// New creates a Collector on a fresh private registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskforge",
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks that completed successfully.",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "taskforge",
			Name:      "tasks_failed_total",
			Help:      "Total number of tasks that failed terminally.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "taskforge",
			Name:      "task_duration_seconds",
			Help:      "Observed task execution duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskforge",
			Name:      "throughput_tasks_per_minute",
			Help:      "Completed tasks per elapsed minute.",
		}),
		workerUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskforge",
			Name:      "worker_utilization_ratio",
			Help:      "Fraction of elapsed wall time the pool spent busy.",
		}),
		parallelismEfficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskforge",
			Name:      "parallelism_efficiency_percent",
			Help:      "Achieved speedup divided by worker count, expressed as a percentage and capped at 100.",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskforge",
			Name:      "active_workers",
			Help:      "Current number of workers in the pool.",
		}),
		parallelism: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "taskforge",
			Name:      "current_parallelism",
			Help:      "Current number of concurrently running tasks.",
		}),
		workerBusyTime: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskforge",
			Name:      "worker_busy_seconds_total",
			Help:      "Cumulative busy time per worker.",
		}, []string{"worker_id"}),
	}

	registry.MustRegister(
		c.tasksCompleted,
		c.tasksFailed,
		c.taskDuration,
		c.throughput,
		c.workerUtilization,
		c.parallelismEfficiency,
		c.activeWorkers,
		c.parallelism,
		c.workerBusyTime,
	)

	return c
}

// Registry exposes the private registry so an embedder can wire it into its
// own /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordTaskCompleted records one successful task's duration.
func (c *Collector) RecordTaskCompleted(duration time.Duration) {
	c.tasksCompleted.Inc()
	c.taskDuration.Observe(duration.Seconds())
}

// RecordTaskFailed records one terminally failed task's duration.
func (c *Collector) RecordTaskFailed(duration time.Duration) {
	c.tasksFailed.Inc()
	c.taskDuration.Observe(duration.Seconds())
}

// RecordWorkerBusy adds busy seconds attributed to workerID.
func (c *Collector) RecordWorkerBusy(workerID string, busy time.Duration) {
	c.workerBusyTime.WithLabelValues(workerID).Add(busy.Seconds())
}

// SetDerived pushes the progress package's derived figures onto the
// corresponding gauges in one call, matching how often the executor
// samples progress.
func (c *Collector) SetDerived(throughput, workerUtilization, parallelismEfficiency float64, activeWorkers, currentParallelism int) {
	c.throughput.Set(throughput)
	c.workerUtilization.Set(workerUtilization)
	c.parallelismEfficiency.Set(parallelismEfficiency)
	c.activeWorkers.Set(float64(activeWorkers))
	c.parallelism.Set(float64(currentParallelism))
}
