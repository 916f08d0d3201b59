package ecs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState is returned when a mutation targets a disabled or
	// destroyed entity, or an id outside the manager's component range.
	ErrInvalidState = errors.New("ecs: invalid entity state")

	// ErrDuplicateComponent is returned when adding into an occupied slot.
	ErrDuplicateComponent = errors.New("ecs: component already present")

	// ErrConfig is returned by NewManager for inconsistent construction input.
	ErrConfig = errors.New("ecs: invalid configuration")

	// ErrReferenceProtocol is returned by the checked reference counter when an
	// owner acquires twice or releases a reference it does not hold.
	ErrReferenceProtocol = errors.New("ecs: reference protocol violation")

	// ErrReferenceLeak is returned when destroyed entities stay referenced by
	// external holders and cannot be recycled.
	ErrReferenceLeak = errors.New("ecs: reference leak")
)

// ReferenceLeakError lists every entity that DestroyAllEntities could not
// recycle because an external holder never released it.
type ReferenceLeakError struct {
	Manager  string
	Entities []string
}

func (e *ReferenceLeakError) Error() string {
	return fmt.Sprintf("manager %s has %d unreleased entities:\n%s",
		e.Manager, len(e.Entities), strings.Join(e.Entities, "\n"))
}

func (e *ReferenceLeakError) Unwrap() error {
	return ErrReferenceLeak
}

func componentRangeError(op string, id, max int) error {
	return fmt.Errorf("%s: component id %d outside [0,%d): %w", op, id, max, ErrInvalidState)
}
