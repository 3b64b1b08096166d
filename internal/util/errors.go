package util

import (
	"errors"
	"fmt"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrAssignmentNotFound      = errors.New("assignment not found")
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAssignmentNotYetOpen    = errors.New("assignment is not open yet")
	ErrAssignmentExpired       = errors.New("assignment has expired")
	ErrAttemptQuotaExceeded    = errors.New("no attempts remaining for this assignment")
	ErrAttemptInProgress       = errors.New("an attempt is already in progress")
	ErrNoOpenAttempt           = errors.New("no attempt has been started")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptNotSubmitted     = errors.New("attempt has not been submitted yet")
	ErrTimeLimitExceeded       = errors.New("time limit exceeded")

	// ErrAttemptConflict marks a lost race on the attempt ledger; the
	// lifecycle controller retries once before it reaches a caller.
	ErrAttemptConflict = errors.New("concurrent attempt modification")
)

// ValidationError describes malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// businessErrors are rejections of the attempt lifecycle. They reflect a real
// state of the ledger and are reported as 400 without retry.
var businessErrors = []error{
	ErrAssignmentNotYetOpen,
	ErrAssignmentExpired,
	ErrAttemptQuotaExceeded,
	ErrAttemptInProgress,
	ErrNoOpenAttempt,
	ErrAttemptAlreadySubmitted,
	ErrAttemptNotSubmitted,
	ErrTimeLimitExceeded,
}

func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound) || errors.Is(err, ErrAttemptNotFound)
}
