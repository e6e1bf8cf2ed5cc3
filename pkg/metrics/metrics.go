package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuemby/coordpool/pkg/types"
)

var (
	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordpool_workers_total",
			Help: "Total number of live workers by state",
		},
		[]string{"state"},
	)

	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "coordpool_tasks_total",
			Help: "Total number of tasks by status",
		},
		[]string{"status"},
	)

	TasksSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coordpool_tasks_submitted_total",
			Help: "Total number of tasks submitted",
		},
	)

	TasksCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coordpool_tasks_completed_total",
			Help: "Total number of tasks completed successfully",
		},
	)

	TasksFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coordpool_tasks_failed_total",
			Help: "Total number of tasks that exhausted retry and failed",
		},
	)

	TasksCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coordpool_tasks_cancelled_total",
			Help: "Total number of tasks cancelled by shutdown",
		},
	)

	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coordpool_queue_length",
			Help: "Current number of pending tasks in the queue",
		},
	)

	QueueRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coordpool_queue_rejections_total",
			Help: "Total number of submissions rejected with QueueFull",
		},
	)

	AssignmentLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coordpool_assignment_latency_seconds",
			Help:    "Time from task submission to first successful assignment",
			Buckets: prometheus.DefBuckets,
		},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coordpool_task_duration_seconds",
			Help:    "Time a task spent in_progress before completion, by type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	Utilization = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coordpool_utilization",
			Help: "tasks_in_progress / max(workers, 1)",
		},
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(TasksSubmittedTotal)
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(TasksFailedTotal)
	prometheus.MustRegister(TasksCancelledTotal)
	prometheus.MustRegister(QueueLength)
	prometheus.MustRegister(QueueRejectionsTotal)
	prometheus.MustRegister(AssignmentLatency)
	prometheus.MustRegister(TaskDuration)
	prometheus.MustRegister(Utilization)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Aggregator implements the coordination pool's MetricsAggregator: the
// counters, running averages, and derived utilization described in the
// component design, mirrored into the package-level Prometheus series above
// so the same numbers are both returned from Snapshot and scrapeable.
//
// Aggregator is not safe for concurrent use on its own; every mutating
// method is called from inside the coordination facade's single critical
// section.
type Aggregator struct {
	workers         int64
	tasksTotal      int64
	tasksPending    int64
	tasksInProgress int64
	tasksCompleted  int64
	tasksFailed     int64
	tasksCancelled  int64
	queueLength     int64
	queueRejections int64

	taskDurationCount int64
	taskDurationMean  time.Duration

	assignmentLatencyCount int64
	assignmentLatencyMean  time.Duration
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// SetWorkers records the current live worker count. Use SetWorkerStates to
// also mirror the per-state breakdown into the exported gauge.
func (a *Aggregator) SetWorkers(n int64) {
	a.workers = n
}

// SetWorkerStates mirrors the registry's worker-by-state breakdown into the
// exported gauge.
func (a *Aggregator) SetWorkerStates(counts map[types.WorkerState]int) {
	WorkersTotal.Reset()
	for state, count := range counts {
		WorkersTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

// RecordSubmitted increments tasks_total and tasks_pending (or
// tasks_in_progress, if dispatched immediately by the caller).
func (a *Aggregator) RecordSubmitted(status types.TaskStatus) {
	a.tasksTotal++
	TasksSubmittedTotal.Inc()
	switch status {
	case types.TaskPending:
		a.tasksPending++
	case types.TaskInProgress:
		a.tasksInProgress++
	}
}

// RecordQueueRejection increments queue_rejections.
func (a *Aggregator) RecordQueueRejection() {
	a.queueRejections++
	QueueRejectionsTotal.Inc()
}

// RecordAssigned transitions a task into in_progress in the counters, given
// the status it held immediately before this assignment: pending (queued,
// now dispatched), in_progress (a failover reassignment to a new worker;
// the task was already counted in_progress and stays there), or any other
// value (a task that was never counted pending; only in_progress is
// incremented). The facade records every submission as pending first, so a
// task dispatched immediately at submission arrives here as pending.
// If this is the task's first assignment ever, latency is folded into
// avg_assignment_latency.
func (a *Aggregator) RecordAssigned(prevStatus types.TaskStatus, latency time.Duration, isFirstAssignment bool) {
	switch prevStatus {
	case types.TaskPending:
		a.tasksPending--
		a.tasksInProgress++
	case types.TaskInProgress:
		// worker changed under an already-counted in_progress task.
	default:
		a.tasksInProgress++
	}
	if isFirstAssignment {
		a.assignmentLatencyCount++
		a.assignmentLatencyMean += (latency - a.assignmentLatencyMean) / time.Duration(a.assignmentLatencyCount)
		AssignmentLatency.Observe(latency.Seconds())
	}
}

// RecordCompleted transitions a task from in_progress to completed and
// folds its duration into avg_task_duration.
func (a *Aggregator) RecordCompleted(taskType types.TaskType, duration time.Duration) {
	a.tasksInProgress--
	a.tasksCompleted++
	a.taskDurationCount++
	a.taskDurationMean += (duration - a.taskDurationMean) / time.Duration(a.taskDurationCount)
	TasksCompletedTotal.Inc()
	TaskDuration.WithLabelValues(string(taskType)).Observe(duration.Seconds())
}

// RecordRequeued transitions a task from in_progress back to pending, used
// when a worker fails and no eligible replacement is idle yet.
func (a *Aggregator) RecordRequeued() {
	a.tasksInProgress--
	a.tasksPending++
}

// RecordFailed transitions a task to failed. fromInProgress distinguishes a
// worker-fault failure (task was in_progress) from an admission-time
// failure, which never happens today but keeps the counters honest if one
// is added.
func (a *Aggregator) RecordFailed(fromInProgress bool) {
	if fromInProgress {
		a.tasksInProgress--
	} else {
		a.tasksPending--
	}
	a.tasksFailed++
	TasksFailedTotal.Inc()
}

// RecordCancelled transitions a task to cancelled from whichever
// non-terminal status it held.
func (a *Aggregator) RecordCancelled(from types.TaskStatus) {
	switch from {
	case types.TaskPending:
		a.tasksPending--
	case types.TaskInProgress:
		a.tasksInProgress--
	}
	a.tasksCancelled++
	TasksCancelledTotal.Inc()
}

// SetQueueLength mirrors the queue's current length.
func (a *Aggregator) SetQueueLength(n int64) {
	a.queueLength = n
	QueueLength.Set(float64(n))
}

// Snapshot returns a point-in-time copy of every counter and derived value.
func (a *Aggregator) Snapshot() types.MetricsSnapshot {
	utilization := 0.0
	workers := a.workers
	if workers < 1 {
		workers = 1
	}
	utilization = float64(a.tasksInProgress) / float64(workers)
	Utilization.Set(utilization)

	TasksTotal.Reset()
	TasksTotal.WithLabelValues(string(types.TaskPending)).Set(float64(a.tasksPending))
	TasksTotal.WithLabelValues(string(types.TaskInProgress)).Set(float64(a.tasksInProgress))
	TasksTotal.WithLabelValues(string(types.TaskCompleted)).Set(float64(a.tasksCompleted))
	TasksTotal.WithLabelValues(string(types.TaskFailed)).Set(float64(a.tasksFailed))
	TasksTotal.WithLabelValues(string(types.TaskCancelled)).Set(float64(a.tasksCancelled))

	return types.MetricsSnapshot{
		Workers:              a.workers,
		TasksTotal:           a.tasksTotal,
		TasksPending:         a.tasksPending,
		TasksInProgress:      a.tasksInProgress,
		TasksCompleted:       a.tasksCompleted,
		TasksFailed:          a.tasksFailed,
		TasksCancelled:       a.tasksCancelled,
		QueueLength:          a.queueLength,
		QueueRejections:      a.queueRejections,
		AvgTaskDuration:      a.taskDurationMean,
		AvgAssignmentLatency: a.assignmentLatencyMean,
		Utilization:          utilization,
	}
}
