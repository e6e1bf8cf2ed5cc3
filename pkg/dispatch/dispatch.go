// Package dispatch implements the coordination pool's Dispatcher match
// policy: preferred-worker routing, history-based affinity, and fallback
// to any eligible idle worker.
//
// This package is pure and stateless — it only selects among the workers
// and task handed to it. The facade (pkg/pool) owns the queue scan, the
// state transitions, and the single critical section these selections run
// inside.
package dispatch

import (
	"sort"

	"github.com/cuemby/coordpool/pkg/types"
)

// SelectWorker applies the match policy to a task given the currently idle
// workers, returning the chosen worker or nil if none is eligible.
//
// Policy, in order:
//  1. Preferred worker: task.PreferredWorkerID, if idle and not excluded.
//  2. Affinity: among idle, non-excluded workers with a recorded history
//     for task.Type, the lowest mean duration for that type. Ties break by
//     lowest total active time, then by worker id lexical order.
//  3. Fallback: any idle, non-excluded worker, lowest worker id first.
func SelectWorker(task *types.Task, idle []*types.Worker) *types.Worker {
	eligible := make([]*types.Worker, 0, len(idle))
	for _, w := range idle {
		if !task.IsExcluded(w.ID) {
			eligible = append(eligible, w)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	if task.PreferredWorkerID != "" {
		for _, w := range eligible {
			if w.ID == task.PreferredWorkerID {
				return w
			}
		}
	}

	var withHistory []*types.Worker
	for _, w := range eligible {
		if w.HistoryFor(task.Type) != nil {
			withHistory = append(withHistory, w)
		}
	}
	if len(withHistory) > 0 {
		sort.Slice(withHistory, func(i, j int) bool {
			hi := withHistory[i].HistoryFor(task.Type)
			hj := withHistory[j].HistoryFor(task.Type)
			if hi.MeanDuration != hj.MeanDuration {
				return hi.MeanDuration < hj.MeanDuration
			}
			if hi.TotalActiveTime != hj.TotalActiveTime {
				return hi.TotalActiveTime < hj.TotalActiveTime
			}
			return withHistory[i].ID < withHistory[j].ID
		})
		return withHistory[0]
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible[0]
}
