/*
Package metrics implements the coordination pool's MetricsAggregator: the
running counters, averages, and derived utilization described by the
component design, exported both as an in-memory snapshot and as a
Prometheus scrape target.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  Aggregator (pkg/metrics)                                 │
	│    - updated inline by the facade under its single lock   │
	│    - Snapshot() → types.MetricsSnapshot (point-in-time)   │
	│                                                            │
	│  Prometheus series (package-level, mirrored on update)    │
	│    - coordpool_workers_total{state}                       │
	│    - coordpool_tasks_total{status}                        │
	│    - coordpool_queue_length, coordpool_utilization         │
	│    - coordpool_assignment_latency_seconds (histogram)      │
	│    - coordpool_task_duration_seconds{type} (histogram)     │
	│                                                            │
	│  Handler() → promhttp.Handler()                            │
	└────────────────────────────────────────────────────────┘

# Two Views, One Source of Truth

The Aggregator keeps its own plain Go counters (int64s and running-mean
time.Duration fields) as the authoritative values Snapshot returns to
callers per §4.9's "readers do not observe torn reads" requirement. The
package-level Prometheus vars are a mirror updated alongside those
counters, not a second source of truth — an operator scraping /metrics
sees the same numbers a caller gets from Snapshot, just reshaped into
Prometheus's gauge/counter/histogram vocabulary.

# Running Averages

avg_task_duration and avg_assignment_latency are simple cumulative running
means (mean += (x - mean) / n), chosen over an exponentially-weighted mean
for determinism: replaying the same sequence of completions always
produces the same average, which is what the end-to-end scenario tests in
the suite rely on.

# Process Health

health.go (HealthChecker, HealthHandler, ReadyHandler, LivenessHandler) is
a separate, simpler JSON status endpoint for liveness/readiness probes; it
answers "is the process up and past startup" rather than the pool's
domain metrics.
*/
package metrics
