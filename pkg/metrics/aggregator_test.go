package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cuemby/coordpool/pkg/types"
)

func TestAggregatorSubmitAssignComplete(t *testing.T) {
	a := NewAggregator()
	a.SetWorkers(2)

	a.RecordSubmitted(types.TaskPending)
	snap := a.Snapshot()
	assert.EqualValues(t, 1, snap.TasksTotal)
	assert.EqualValues(t, 1, snap.TasksPending)
	assert.EqualValues(t, 0, snap.TasksInProgress)

	a.RecordAssigned(types.TaskPending, 50*time.Millisecond, true)
	snap = a.Snapshot()
	assert.EqualValues(t, 0, snap.TasksPending)
	assert.EqualValues(t, 1, snap.TasksInProgress)
	assert.Equal(t, 50*time.Millisecond, snap.AvgAssignmentLatency)

	a.RecordCompleted(types.TaskGeneral, 2*time.Second)
	snap = a.Snapshot()
	assert.EqualValues(t, 0, snap.TasksInProgress)
	assert.EqualValues(t, 1, snap.TasksCompleted)
	assert.Equal(t, 2*time.Second, snap.AvgTaskDuration)
}

func TestAggregatorRunningMeanAcrossCompletions(t *testing.T) {
	a := NewAggregator()
	durations := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}
	for _, d := range durations {
		a.RecordCompleted(types.TaskGeneral, d)
	}
	snap := a.Snapshot()
	assert.Equal(t, 3*time.Second, snap.AvgTaskDuration) // (1+3+5)/3
}

func TestAggregatorFreshAssignmentNeverQueued(t *testing.T) {
	a := NewAggregator()
	a.RecordSubmitted(types.TaskPending)
	// A prior status that is neither Pending nor InProgress takes the
	// "never counted pending" branch: in_progress is incremented and
	// pending is left alone. This test exercises that branch directly.
	a.RecordAssigned(types.TaskStatus(""), 10*time.Millisecond, true)
	snap := a.Snapshot()
	assert.EqualValues(t, 1, snap.TasksPending) // unaffected by a fresh assignment
	assert.EqualValues(t, 1, snap.TasksInProgress)
}

func TestAggregatorReassignmentDoesNotDoubleCount(t *testing.T) {
	a := NewAggregator()
	a.RecordSubmitted(types.TaskPending)
	a.RecordAssigned(types.TaskPending, 10*time.Millisecond, true)
	assert.EqualValues(t, 1, a.Snapshot().TasksInProgress)

	// Failover: task was already in_progress, now reassigned to a new
	// worker. The in_progress count must not change.
	a.RecordAssigned(types.TaskInProgress, 0, false)
	assert.EqualValues(t, 1, a.Snapshot().TasksInProgress)
}

func TestAggregatorRequeueOnStalledRetry(t *testing.T) {
	a := NewAggregator()
	a.RecordSubmitted(types.TaskPending)
	a.RecordAssigned(types.TaskPending, 10*time.Millisecond, true)

	a.RecordRequeued()
	snap := a.Snapshot()
	assert.EqualValues(t, 1, snap.TasksPending)
	assert.EqualValues(t, 0, snap.TasksInProgress)
}

func TestAggregatorUtilization(t *testing.T) {
	a := NewAggregator()
	a.SetWorkers(4)
	a.RecordSubmitted(types.TaskPending)
	a.RecordAssigned(types.TaskPending, 0, true)
	a.RecordSubmitted(types.TaskPending)
	a.RecordAssigned(types.TaskPending, 0, true)

	snap := a.Snapshot()
	assert.Equal(t, 0.5, snap.Utilization)
}

func TestAggregatorUtilizationWithNoWorkers(t *testing.T) {
	a := NewAggregator()
	snap := a.Snapshot()
	assert.Equal(t, 0.0, snap.Utilization)
}

func TestAggregatorCancelledFromPending(t *testing.T) {
	a := NewAggregator()
	a.RecordSubmitted(types.TaskPending)
	a.RecordCancelled(types.TaskPending)

	snap := a.Snapshot()
	assert.EqualValues(t, 0, snap.TasksPending)
	assert.EqualValues(t, 1, snap.TasksCancelled)
}
