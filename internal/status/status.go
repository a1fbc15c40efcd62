package status

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyQueued      = errors.New("queue: already in an active queue")
	ErrOfficeNotFound     = errors.New("queue: office not found")
	ErrCannotCancel       = errors.New("queue: ticket cannot be cancelled")
	ErrNotFound           = errors.New("store: record not found")
	ErrStore              = errors.New("store: operation failed")
	ErrStudentExists      = errors.New("auth: student ID already exists")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrWrongNetwork       = errors.New("network: not on the office network")
)

// AlreadyQueuedError carries the visitor's existing ticket number so the
// rejection message can reference it.
type AlreadyQueuedError struct {
	Number string
}

func (e *AlreadyQueuedError) Error() string {
	return fmt.Sprintf("you are already in queue %s", e.Number)
}

func (e *AlreadyQueuedError) Is(target error) bool {
	return target == ErrAlreadyQueued
}

// StoreError wraps an underlying store failure; callers surface a generic
// message and log the cause.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
