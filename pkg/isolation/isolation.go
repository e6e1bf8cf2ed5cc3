// Package isolation implements the coordination pool's IsolationReporter:
// the pairwise scan confirming that no two live workers share a context,
// tool-session, or memory-handle identifier.
package isolation

import "github.com/cuemby/coordpool/pkg/types"

// Report performs a pairwise isolation scan across every live worker and
// returns the collisions found, if any. An empty Collisions slice with
// Isolated=true is the expected, healthy result.
func Report(workers []*types.Worker) types.IsolationReport {
	var collisions []types.IsolationCollision

	type fingerprint struct {
		kind  string
		value string
	}
	seen := make(map[fingerprint]string, len(workers)*3) // value -> first worker id seen on

	check := func(kind, value, workerID string) {
		if value == "" {
			return
		}
		fp := fingerprint{kind: kind, value: value}
		if owner, ok := seen[fp]; ok {
			collisions = append(collisions, types.IsolationCollision{
				WorkerA:    owner,
				WorkerB:    workerID,
				Identifier: value,
				Kind:       kind,
			})
			return
		}
		seen[fp] = workerID
	}

	for _, w := range workers {
		check("context_id", w.ContextID, w.ID)
		check("tool_session_id", w.ToolSessionID, w.ID)
		check("memory_handle_id", w.MemoryHandleID, w.ID)
	}

	return types.IsolationReport{
		Isolated:   len(collisions) == 0,
		Collisions: collisions,
	}
}

// CollidingWorkers extracts the set of worker ids named in a report's
// collisions, so the facade can refuse further dispatch to them.
func CollidingWorkers(report types.IsolationReport) map[string]bool {
	out := make(map[string]bool)
	for _, c := range report.Collisions {
		out[c.WorkerA] = true
		out[c.WorkerB] = true
	}
	return out
}
