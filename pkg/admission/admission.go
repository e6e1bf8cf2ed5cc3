// Package admission implements the coordination pool's AdmissionController:
// task-type validation, queue-capacity rejection, and dependency-gating for
// discovery/migration submissions.
package admission

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cuemby/coordpool/pkg/types"
)

// ErrInvalidTaskType is returned when a submission names a type outside the
// closed TaskType set.
var ErrInvalidTaskType = errors.New("admission: invalid task type")

// ErrQueueFull is returned when the queue is already at its bound.
var ErrQueueFull = errors.New("admission: queue full")

// ErrDegraded is returned when a gated task type is submitted in strict
// mode while the discovery dependency is unavailable.
var ErrDegraded = errors.New("admission: discovery dependency unavailable")

var validate = validator.New()

// Request is the shape validated on every submission. Payload itself is
// never inspected by the validator or by any part of the core; it is
// opaque data handed through to the worker runtime.
type Request struct {
	Type              types.TaskType `validate:"required,oneof=discovery migration heartbeat ingest research general"`
	Payload           map[string]any
	PreferredWorkerID string
	// Strict, if true, causes a gated type submitted while the discovery
	// dependency is down to be rejected with ErrDegraded instead of held.
	Strict bool
}

// ValidateType confirms the submission's task type is a member of the
// closed set, using struct-tag validation rather than a hand-rolled
// membership check.
func ValidateType(req Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTaskType, err)
	}
	return nil
}

// Decision is the outcome of running a submission through admission control,
// prior to the dispatcher's placement attempt.
type Decision struct {
	// Gated marks the task as held pending because its type is gated and
	// the discovery dependency is currently unavailable.
	Gated bool
}

// Admit runs a validated submission through the queue-capacity and
// dependency-gating checks described in §4.5. queueFull and
// discoveryAvailable are supplied by the caller (the facade), which alone
// has a consistent view of both under its single critical section.
func Admit(req Request, queueFull bool, discoveryAvailable bool) (Decision, error) {
	if err := ValidateType(req); err != nil {
		return Decision{}, err
	}
	if queueFull {
		return Decision{}, ErrQueueFull
	}
	if types.GatedTaskTypes[req.Type] && !discoveryAvailable {
		if req.Strict {
			return Decision{}, ErrDegraded
		}
		return Decision{Gated: true}, nil
	}
	return Decision{}, nil
}
