package requests

import (
	"fmt"
	"strings"
)

// FieldError is a single field-scoped validation failure, e.g.
// {"proposalParameters.changeDateFrom", "a change date is required ..."}.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors blocks an operation before any mutation and is returned to
// the caller as a list of (field, message) pairs.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func validationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// NotFoundError indicates the referenced entity does not exist. Fatal for the
// command, harmless to other state.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s was not found", e.Entity, e.ID)
}

// UnauthorizedError indicates the actor satisfies none of the access
// predicates for the workflow step. Raised as an error, not returned as data,
// so callers cannot silently proceed.
type UnauthorizedError struct {
	ActorName string
	Step      string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s is not authorized to complete workflow step %q", e.ActorName, e.Step)
}

// ConflictError indicates a concurrent update won the optimistic-concurrency
// race; the caller should reload and retry.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently, reload and retry", e.Entity, e.ID)
}
