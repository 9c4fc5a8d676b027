package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorises failures so callers can map them to user-facing text.
type Kind string

const (
	KindOracle          Kind = "oracle_failure"
	KindSchemaLookup    Kind = "schema_lookup_failure"
	KindSynthesis       Kind = "synthesis_failure"
	KindExecution       Kind = "execution_failure"
	KindInputValidation Kind = "input_validation_failure"
	KindStorage         Kind = "storage_unavailable"
	KindSessionStore    Kind = "session_store_failure"
	KindSystem          Kind = "system_error"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(kind Kind, err error, status int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Status:  status,
		Message: message,
	}
}

func Oracle(err error, message string) *AppError {
	return New(KindOracle, err, http.StatusBadGateway, message)
}

func SchemaLookup(err error, message string) *AppError {
	return New(KindSchemaLookup, err, http.StatusBadGateway, message)
}

func Synthesis(err error, message string) *AppError {
	return New(KindSynthesis, err, http.StatusUnprocessableEntity, message)
}

func Execution(err error, message string) *AppError {
	return New(KindExecution, err, http.StatusBadGateway, message)
}

func Storage(err error, message string) *AppError {
	return New(KindStorage, err, http.StatusServiceUnavailable, message)
}

// KindOf returns the kind of the first AppError in the chain, or KindSystem.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindSystem
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
