// Package idgen generates opaque unique identifiers for workers, tasks, and
// isolation resources. The pool core makes no assumption about id layout;
// callers must not parse ids, and their lexical order is used only as a
// deterministic tie-break.
package idgen

import "github.com/google/uuid"

// Generator yields globally unique opaque identifiers.
type Generator interface {
	New() string
}

// UUIDGenerator generates RFC 4122 UUIDs, mirroring the id scheme used
// elsewhere in this codebase's ancestry for node, service, and task ids.
type UUIDGenerator struct{}

// New returns the default UUID-backed Generator.
func New() Generator { return UUIDGenerator{} }

func (UUIDGenerator) New() string { return uuid.NewString() }
