package services

import (
	"errors"
	"strings"
)

// NotFoundError signals that a requested selection could not be resolved:
// missing or foreign-account identifiers, an empty set where a non-empty
// one is required, or subscriptions without enough free seats. It always
// fires before any mutation.
type NotFoundError struct {
	Messages []string
}

func (e *NotFoundError) Error() string {
	if len(e.Messages) == 0 {
		return "not found"
	}
	return strings.Join(e.Messages, "; ")
}

// NewNotFoundError creates a NotFoundError carrying one message per
// offending selection item.
func NewNotFoundError(messages ...string) *NotFoundError {
	return &NotFoundError{Messages: messages}
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) (*NotFoundError, bool) {
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return notFoundErr, true
	}
	return nil, false
}
