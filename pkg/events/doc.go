/*
Package events provides an in-memory event broker for the coordination
pool's pub/sub notifications.

The events package implements a lightweight, topic-agnostic event bus: every
event is broadcast to every subscriber, with per-subscriber buffering so a
slow observer cannot stall the facade. Publish waits only for room in the
broker's own event channel, which the Start loop keeps draining.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  Publisher → Event Channel (buffer: 100)                  │
	│       ↓                                                    │
	│  Broadcast Loop                                            │
	│       ↓                                                    │
	│  Subscriber Channels (buffer: 50 each)                     │
	└────────────────────────────────────────────────────────┘

# Event Types

	Task lifecycle:    task_submitted, task_queued, task_assigned,
	                    task_completed, task_failed, task_cancelled
	Worker lifecycle:  worker_spawned, worker_failed, worker_retired
	Pool health:       isolation_violated, degradation_changed

Every event carries the relevant task/worker id and a CorrelationID that
links a task's events across all of its retry attempts, so an observer can
reconstruct a task's full attempt history from the event stream alone.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:          events.EventTaskAssigned,
		TaskID:        task.ID,
		WorkerID:      worker.ID,
		CorrelationID: task.CorrelationID,
	})

	for ev := range sub {
		// handle ev
	}

# Delivery Guarantees

Publish never blocks on a subscriber: if a subscriber's buffer is full the
event is dropped for that subscriber only. This favors keeping the facade's
critical section fast over guaranteed delivery to observability sinks,
which are treated as best-effort collaborators (see pkg/pool).
*/
package events
