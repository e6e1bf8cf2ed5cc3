/*
Package log provides structured logging for the coordination pool using
zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions
for common logging patterns. All logs include timestamps and support
filtering by severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("dispatcher")              │          │
	│  │  - WithWorkerID("worker-abc123")            │          │
	│  │  - WithTaskID("task-def456")                │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	log.Info("pool initialized")

	dispatchLog := log.WithComponent("dispatcher")
	dispatchLog.Info().Str("task_id", t.ID).Msg("task assigned")

	workerLog := log.WithWorkerID(w.ID)
	workerLog.Warn().Msg("worker marked degraded")

# Design Patterns

Global Logger Pattern: a single package-level Logger initialized once at
process start, accessible from every package without being passed around.

Context Logger Pattern: child loggers created with With* helpers carry a
fixed id field into every subsequent log line, avoiding repetitive field
specification at call sites deep in the dispatch and failure-handling
paths.

# Best Practices

Do:
  - Use Info level in production, Debug only when troubleshooting.
  - Create a component logger once per package, not per call.
  - Log errors with .Err() rather than string-formatting them.

Don't:
  - Log task payloads (they are opaque to the core and may be arbitrary
    caller data).
  - Concatenate strings into the message; use typed fields.
*/
package log
