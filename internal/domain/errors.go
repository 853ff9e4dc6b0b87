package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTransientStore    = errors.New("transient store error")
	ErrPersistence       = errors.New("persistence error")
	ErrInvalidPayload    = errors.New("invalid payload")

	// ErrAlreadyClaimed is returned when a non-failed claim exists for the pair.
	ErrAlreadyClaimed = fmt.Errorf("%w: reward already claimed", ErrConflict)
)

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	ClaimID uuid.UUID
	From    ClaimStatus
	To      ClaimStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("claim %s: cannot move from %s to %s", e.ClaimID, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsRetryable reports whether err is safe to retry as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

func invalidPayload(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, msg)
}
