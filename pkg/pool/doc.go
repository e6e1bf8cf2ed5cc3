/*
Package pool implements the coordination pool's CoordinationFacade: the
single public entry point wiring WorkerRegistry, TaskQueue,
AdmissionController, Dispatcher, FailureHandler, HealthProbe,
MetricsAggregator, IsolationReporter, and the event broker behind one
sync.Mutex.

# Concurrency Model

Every exported method that reads or changes pool state holds Pool.mu while
it does so. Registry, Queue,
and Aggregator carry no locks of their own; Pool's mutex is the pool's one
logical critical section, chosen over per-component locking because every
operation here — submit, complete, fail_worker, a queue drain — touches more
than one of those components atomically, and a pool never holds more than
16 workers and keeps a bounded queue (100 tasks by default), so contention
is not a concern.

# Drain

drainLocked implements the single head-to-tail queue scan used after every
release, failure, and recovery: it repeats the scan until a full pass makes
no further match, so one completion can cascade through several queued
tasks if enough workers are free.

# Failure Handling

FailWorker folds the FailureHandler directly into the facade rather than a
separate package: retiring a worker, excluding it from the task it held, and
deciding whether to fail or retry all happen under the same lock a
dispatch decision would need anyway.
*/
package pool
