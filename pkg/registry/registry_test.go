package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/coordpool/pkg/clock"
	"github.com/cuemby/coordpool/pkg/idgen"
	"github.com/cuemby/coordpool/pkg/types"
)

func newTestRegistry() *Registry {
	return New(idgen.New(), clock.NewFake(time.Unix(0, 0)))
}

func TestSpawnAssignsDisjointFingerprints(t *testing.T) {
	r := newTestRegistry()

	seen := make(map[string]bool)
	for i := 0; i < MaxPoolSize; i++ {
		w, err := r.Spawn()
		require.NoError(t, err)
		assert.False(t, seen[w.ContextID])
		assert.False(t, seen[w.ToolSessionID])
		assert.False(t, seen[w.MemoryHandleID])
		seen[w.ContextID] = true
		seen[w.ToolSessionID] = true
		seen[w.MemoryHandleID] = true
		assert.Equal(t, types.WorkerIdle, w.State)
	}
}

func TestSpawnRespectsMaxPoolSize(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < MaxPoolSize; i++ {
		_, err := r.Spawn()
		require.NoError(t, err)
	}

	_, err := r.Spawn()
	assert.ErrorIs(t, err, ErrPoolFull)
	assert.Equal(t, MaxPoolSize, r.Len())
}

func TestAssignAndRelease(t *testing.T) {
	r := newTestRegistry()
	w, err := r.Spawn()
	require.NoError(t, err)

	require.NoError(t, r.Assign(w.ID, "task-1"))
	assert.Equal(t, types.WorkerExecuting, w.State)
	assert.Equal(t, "task-1", w.CurrentTaskID)
	assert.Len(t, r.IdleWorkers(), 0)

	require.NoError(t, r.Release(w.ID, types.TaskGeneral, 5*time.Second))
	assert.Equal(t, types.WorkerIdle, w.State)
	assert.Empty(t, w.CurrentTaskID)
	assert.Len(t, r.IdleWorkers(), 1)

	h := w.HistoryFor(types.TaskGeneral)
	require.NotNil(t, h)
	assert.Equal(t, int64(1), h.CompletionCount)
	assert.Equal(t, 5*time.Second, h.MeanDuration)
}

func TestReleaseRunningMeanConverges(t *testing.T) {
	r := newTestRegistry()
	w, err := r.Spawn()
	require.NoError(t, err)

	durations := []time.Duration{
		2 * time.Second, 4 * time.Second, 6 * time.Second,
	}
	for _, d := range durations {
		require.NoError(t, r.Assign(w.ID, "t"))
		require.NoError(t, r.Release(w.ID, types.TaskGeneral, d))
	}

	h := w.HistoryFor(types.TaskGeneral)
	require.NotNil(t, h)
	assert.Equal(t, int64(3), h.CompletionCount)
	assert.Equal(t, 4*time.Second, h.MeanDuration) // (2+4+6)/3
}

func TestRetireRemovesWorker(t *testing.T) {
	r := newTestRegistry()
	w, err := r.Spawn()
	require.NoError(t, err)

	require.NoError(t, r.Retire(w.ID))
	assert.Equal(t, 0, r.Len())

	_, err = r.WorkerByID(w.ID)
	assert.ErrorIs(t, err, ErrUnknownWorker)
}

func TestRetireUnknownWorker(t *testing.T) {
	r := newTestRegistry()
	assert.ErrorIs(t, r.Retire("nope"), ErrUnknownWorker)
}

func TestIdleWorkersExcludesExecuting(t *testing.T) {
	r := newTestRegistry()
	w1, _ := r.Spawn()
	w2, _ := r.Spawn()
	require.NoError(t, r.Assign(w1.ID, "t"))

	idle := r.IdleWorkers()
	require.Len(t, idle, 1)
	assert.Equal(t, w2.ID, idle[0].ID)
}

func TestTransitionToDegradedThenRetire(t *testing.T) {
	r := newTestRegistry()
	w, err := r.Spawn()
	require.NoError(t, err)
	require.NoError(t, r.Assign(w.ID, "t"))

	require.NoError(t, r.Transition(w.ID, types.WorkerDegraded))
	got, err := r.WorkerByID(w.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkerDegraded, got.State)

	require.NoError(t, r.Retire(w.ID))
	assert.Equal(t, 0, r.Len())
}

func TestTransitionUnknownWorker(t *testing.T) {
	r := newTestRegistry()
	assert.ErrorIs(t, r.Transition("nope", types.WorkerDegraded), ErrUnknownWorker)
}

func TestSortedIDsIsLexical(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 5; i++ {
		_, err := r.Spawn()
		require.NoError(t, err)
	}
	ids := r.SortedIDs()
	for i := 1; i < len(ids); i++ {
		assert.True(t, ids[i-1] <= ids[i])
	}
}
