package mutation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("mutation already pending")
	// ErrNotFound is returned when the target record is not in the store.
	ErrNotFound = errors.New("record not found")
)

// ConflictError rejects a submit for a record that already has a pending
// mutation. The store is left untouched.
type ConflictError struct {
	EntityID          string
	PendingMutationID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s has pending mutation %s", e.EntityID, e.PendingMutationID)
}

// Is makes errors.Is(err, ErrConflict) hold.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NetworkError wraps a failed server call. The record has been rolled back.
type NetworkError struct {
	EntityID   string
	MutationID uuid.UUID
	Err        error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("mutation %s on %s failed: %v", e.MutationID, e.EntityID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError wraps a server call that did not complete in time. The record
// has been rolled back.
type TimeoutError struct {
	EntityID   string
	MutationID uuid.UUID
	Timeout    time.Duration
	Err        error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("mutation %s on %s timed out after %s", e.MutationID, e.EntityID, e.Timeout)
	}
	return fmt.Sprintf("mutation %s on %s timed out", e.MutationID, e.EntityID)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func classify(entityID string, mutationID uuid.UUID, timeout time.Duration, err error) error {
	if isTimeout(err) {
		return &TimeoutError{EntityID: entityID, MutationID: mutationID, Timeout: timeout, Err: err}
	}
	return &NetworkError{EntityID: entityID, MutationID: mutationID, Err: err}
}
