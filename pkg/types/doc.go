/*
Package types defines the core data structures shared by every component of
the coordination pool.

This package has no dependencies on the rest of the module; most other
packages import it. It defines the Worker and Task records, their state
machines, the health and metrics snapshot shapes, and the isolation report
shape returned to callers.

# Core Types

Worker:
  - Worker: a long-lived executor with an isolation fingerprint
    (ContextID, ToolSessionID, MemoryHandleID) and a per-task-type history
    used by the dispatcher's affinity policy.
  - WorkerState: idle, analyzing, executing, degraded.

Task:
  - Task: a unit of work with a closed TaskType, a status, an attempt
    count, and a growing set of excluded workers.
  - TaskType: discovery, migration, heartbeat, ingest, research, general.
    discovery and migration are gated — see GatedTaskTypes.
  - TaskStatus: pending, in_progress, completed, failed, cancelled.

Aggregates:
  - HealthState: the discovery/migration dependency's availability.
  - MetricsSnapshot: a point-in-time copy of the pool's counters.
  - IsolationReport: the result of a pairwise isolation scan.

# State Machine

Tasks follow a monotone state machine:

	pending → in_progress → completed
	                       → failed
	                       → cancelled

A task may be returned to pending internally during a retry, but the
failure handler transitions it directly to in_progress on a different
worker whenever one is available; pending is only externally observable
when no eligible worker exists yet.

Workers transition idle ↔ executing on dispatch/completion. A reported
fault moves a worker to degraded and retires it in the same step, so a
degraded worker is never dispatched to.

# Thread Safety

Types in this package carry no synchronization of their own. All mutation
happens under the coordination facade's single critical section (see
pkg/pool); callers outside that section only ever see fully-formed
snapshots, never partially mutated records.
*/
package types
