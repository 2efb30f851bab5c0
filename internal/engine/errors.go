package engine

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// NotFoundError names the task id a mutation could not find.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("Task with ID %s not found", e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError indicates a missing or illegal argument value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
