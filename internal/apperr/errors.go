// Package apperr defines the error taxonomy shared by the wizard, the upload
// pipeline, the draft stores and the remote ads client.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeValidation   Code = "VALIDATION"
	CodePrecondition Code = "PRECONDITION"
	CodeRemoteCall   Code = "REMOTE_CALL"
	CodePersistence  Code = "PERSISTENCE"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
)

// HTTPStatus maps a code to the status returned by the HTTP API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodePrecondition, CodeConflict:
		return http.StatusConflict
	case CodeRemoteCall:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError reports a missing or empty required input. No remote call
// is attempted when it is returned.
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

// Validation builds a ValidationError.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PreconditionError reports an attempt to run a step whose prerequisite
// session data is absent. Step is the wizard step the user should return to.
type PreconditionError struct {
	Missing string
	Step    int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s is missing, complete step %d first", e.Missing, e.Step)
}

// RemoteCallError reports a non-2xx response or a transport failure from the
// ads API.
type RemoteCallError struct {
	Op string
	// StatusCode is zero for transport failures.
	StatusCode int
	// Message is the server-provided message, if any.
	Message string
	// ProviderCode is the ads provider error code (e.g. 190), if any.
	ProviderCode int
	Err          error
}

func (e *RemoteCallError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

// PersistenceError reports a draft serialization or storage failure. It is
// logged and never shown to the user.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("draft %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConflictError reports an operation that does not apply to the current
// wizard step.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict builds a ConflictError.
func Conflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound is returned when a wizard or resource does not exist.
var ErrNotFound = errors.New("not found")

// CodeOf classifies err.
func CodeOf(err error) Code {
	var (
		ve *ValidationError
		pe *PreconditionError
		re *RemoteCallError
		se *PersistenceError
		ce *ConflictError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return CodeValidation
	case errors.As(err, &pe):
		return CodePrecondition
	case errors.As(err, &re):
		return CodeRemoteCall
	case errors.As(err, &se):
		return CodePersistence
	case errors.As(err, &ce):
		return CodeConflict
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeUnknown
	}
}
