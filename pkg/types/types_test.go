package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskHistoryUpdateRunningMean(t *testing.T) {
	h := &TaskHistory{Type: TaskGeneral}
	h.Update(2 * time.Second)
	h.Update(4 * time.Second)
	h.Update(6 * time.Second)

	assert.EqualValues(t, 3, h.CompletionCount)
	assert.Equal(t, 12*time.Second, h.TotalActiveTime)
	assert.Equal(t, 4*time.Second, h.MeanDuration)
}

func TestWorkerIsIdle(t *testing.T) {
	w := &Worker{State: WorkerIdle}
	assert.True(t, w.IsIdle())

	w.State = WorkerExecuting
	assert.False(t, w.IsIdle())
}

func TestWorkerHistoryForMissingIsNil(t *testing.T) {
	w := &Worker{History: map[TaskType]*TaskHistory{}}
	assert.Nil(t, w.HistoryFor(TaskGeneral))

	w.History[TaskGeneral] = &TaskHistory{Type: TaskGeneral}
	assert.NotNil(t, w.HistoryFor(TaskGeneral))
}

func TestTaskExcludeAndIsExcluded(t *testing.T) {
	task := &Task{}
	assert.False(t, task.IsExcluded("w1"))

	task.Exclude("w1")
	assert.True(t, task.IsExcluded("w1"))
	assert.False(t, task.IsExcluded("w2"))
}
