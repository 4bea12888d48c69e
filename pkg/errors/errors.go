package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the different failure classes of a sync run
type ErrorType string

const (
	ErrorTypeAPI     ErrorType = "api"
	ErrorTypeNetwork ErrorType = "network"
	ErrorTypeParsing ErrorType = "parsing"
	ErrorTypeIO      ErrorType = "io"
	ErrorTypeUnknown ErrorType = "unknown"
)

// APIError is a single entry of the backend's error list
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e APIError) String() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Error represents a typed failure with its underlying cause
type Error struct {
	Type    ErrorType
	Message string
	// Code is the HTTP status code when one is known
	Code int
	// APIErrors holds the complete error list returned by the backend
	APIErrors []APIError
	// Body holds the raw response body of an unknown response
	Body string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error", e.Type)
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)

	if len(e.APIErrors) > 0 {
		parts := make([]string, len(e.APIErrors))
		for i, apiErr := range e.APIErrors {
			parts[i] = apiErr.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewAPIError wraps the full list of errors returned by the backend
func NewAPIError(apiErrors []APIError) *Error {
	list := make([]APIError, len(apiErrors))
	copy(list, apiErrors)
	return &Error{
		Type:      ErrorTypeAPI,
		Message:   fmt.Sprintf("backend returned %d error(s)", len(list)),
		APIErrors: list,
	}
}

// NewNetworkError reports a transport-level failure
func NewNetworkError(msg string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: msg, Err: err}
}

// NewStatusError reports an unexpected HTTP status as a network failure
func NewStatusError(msg string, code int) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: msg, Code: code}
}

// NewParseError reports malformed JSON where well-formed JSON was expected
func NewParseError(msg string, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: msg, Err: err}
}

// NewIOError reports a local filesystem failure
func NewIOError(msg string, err error) *Error {
	return &Error{Type: ErrorTypeIO, Message: msg, Err: err}
}

// NewUnknownError reports a well-formed envelope with neither data nor errors
func NewUnknownError(body []byte) *Error {
	return &Error{
		Type:    ErrorTypeUnknown,
		Message: "response carried neither data nor errors",
		Body:    string(body),
	}
}

// TypeOf returns the error type of err, or ErrorTypeUnknown when err is not typed
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err, or any error it wraps, is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork:
		return true
	case ErrorTypeAPI, ErrorTypeParsing, ErrorTypeIO, ErrorTypeUnknown:
		return false
	default:
		return false
	}
}
