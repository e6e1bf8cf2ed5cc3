/*
Package dispatch implements the match policy at the center of the
coordination pool's placement decisions.

# Policy

Given a task and the currently idle workers, SelectWorker chooses exactly
one of three outcomes, tried in order:

	1. Preferred worker   — honor the submitter's hint if still idle.
	2. History affinity   — route to whichever idle worker has completed
	                         this task type fastest on average.
	3. Fallback           — any remaining idle worker, lowest id first.

A worker already excluded for this task (it failed a previous attempt) is
never eligible, regardless of which tier would otherwise pick it.

# Determinism

Every tie is broken by worker id so that, given the same registry state and
the same task, SelectWorker always returns the same worker. This is what
lets the pool's test suite assert exact placement in the end-to-end
scenarios rather than "one of a set".

# Callers

The facade (pkg/pool) is the only caller. It uses SelectWorker both for a
freshly submitted task's immediate placement attempt and for the drain scan
that runs after every completion and failure.
*/
package dispatch
