package gqlclient

import (
	"errors"
	"fmt"
)

// QueryError represents a failed remote query.
type QueryError struct {
	Scope      string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s query error (%s): %s: %v", e.Scope, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s query error (%s): %s", e.Scope, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is matches another QueryError with the same code.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewQueryError creates a new QueryError.
func NewQueryError(scope, code, message string) *QueryError {
	return &QueryError{
		Scope:   scope,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *QueryError) WithCause(err error) *QueryError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *QueryError) WithStatusCode(code int) *QueryError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *QueryError) WithRetryable(retryable bool) *QueryError {
	e.Retryable = retryable
	return e
}

// Error codes set on QueryError.
const (
	CodeTransport     = "TRANSPORT"
	CodeHTTPStatus    = "HTTP_STATUS"
	CodeGraphQL       = "GRAPHQL"
	CodeInvalidResult = "INVALID_RESULT"
)

var (
	// ErrScopeNotFound indicates no client is registered for the scope.
	ErrScopeNotFound = errors.New("query scope not found")

	// ErrNoData indicates the response carried no data field.
	ErrNoData = errors.New("response has no data")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Retryable
	}
	return false
}
