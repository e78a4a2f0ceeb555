package stmtbatchgo

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork
	// ErrorTypeAuthentication represents authentication-related errors
	ErrorTypeAuthentication
	// ErrorTypeAPI represents errors reported by the host
	ErrorTypeAPI
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation
)

// Error represents a structured error with type information
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType checks if the error is of a specific type
func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

func newError(errorType ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func isType(err error, errorType ErrorType) bool {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.IsType(errorType)
	}
	return false
}

// IsNetworkError checks if an error is network-related
func IsNetworkError(err error) bool {
	return isType(err, ErrorTypeNetwork)
}

// IsAuthenticationError checks if an error is authentication-related
func IsAuthenticationError(err error) bool {
	return isType(err, ErrorTypeAuthentication)
}

// IsAPIError checks if an error was reported by the host
func IsAPIError(err error) bool {
	return isType(err, ErrorTypeAPI)
}

// IsValidationError checks if an error is validation-related
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// wrapHTTPError wraps a non-200 HTTP response into an appropriate Error type
func wrapHTTPError(resp *http.Response, message string) *Error {
	msg := fmt.Sprintf("%s: %s", message, resp.Status)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return newError(ErrorTypeAuthentication, msg, nil)
	case http.StatusBadRequest:
		return newError(ErrorTypeValidation, msg, nil)
	default:
		return &Error{Type: ErrorTypeAPI, Message: msg, StatusCode: resp.StatusCode}
	}
}
