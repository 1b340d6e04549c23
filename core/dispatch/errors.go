package dispatch

import (
	"errors"
	"fmt"

	"github.com/fleetops/tripdispatch/core/model"
)

// ConflictError rejects an operation because a resource is not free or is
// already assigned. The caller is expected to retry with a different
// candidate, not to wait.
type ConflictError struct {
	Resource string // "driver", "vehicle", "category", "pair"
	ID       int64  // zero when the conflict is not tied to one resource
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("%s %d: %s", e.Resource, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}

// StateError rejects an operation that is illegal in the trip's current
// status. The operation has no side effects.
type StateError struct {
	TripID int64
	Status model.TripStatus
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("trip %d in status %s: %s", e.TripID, e.Status, e.Reason)
}

// NotFoundError rejects an operation referencing an unknown entity, before
// any lock is taken.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var t *ConflictError
	return errors.As(err, &t)
}

// IsStateError reports whether err is (or wraps) a StateError.
func IsStateError(err error) bool {
	var t *StateError
	return errors.As(err, &t)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var t *NotFoundError
	return errors.As(err, &t)
}
