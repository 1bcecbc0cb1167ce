package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

// NotFoundError reports a referenced inspection, defect, piece, job or template that does not exist.
type NotFoundError struct {
	Resource string
	Id       string
}

func NewNotFoundError(resource string, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, Id: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Id)
}

// Is lets errors.Is(err, ErrorRecordNotFound) keep working for typed not-found errors.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrorRecordNotFound
}

// ValidationError covers missing required fields and invalid status transitions.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// ConflictError is returned when a unique column (document number) collides.
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{Resource: resource, Field: field, Value: value}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate %s %s: %s", e.Resource, e.Field, e.Value)
}

// DependencyFailure wraps a failed best-effort write (notification, job metrics).
// It is logged and counted, never returned to callers of the QA operations.
type DependencyFailure struct {
	Dependency string
	Err        error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Dependency, e.Err)
}

func (e *DependencyFailure) Unwrap() error { return e.Err }

// StatusSyncError is a partial failure: the inspection/defect write is durable
// but propagating the outcome to the piece failed. Retrying the status sync is safe.
type StatusSyncError struct {
	Resource string
	Id       string
	PieceId  string
	Err      error
}

func (e *StatusSyncError) Error() string {
	return fmt.Sprintf("%s %s saved but piece %s status sync failed: %v", e.Resource, e.Id, e.PieceId, e.Err)
}

func (e *StatusSyncError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrorRecordNotFound)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsStatusSync(err error) bool {
	var se *StatusSyncError
	return errors.As(err, &se)
}

