package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already processed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLimitExceeded     = errors.New("withdrawal limit exceeded")
	ErrExternalService   = errors.New("external service failure")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ValidationError rejects a request before any persistence. Code is a stable
// machine-readable reason; Message is for humans.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(code, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}
