package marvel

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks arguments rejected before any request is sent.
var ErrInvalidInput = errors.New("invalid input")

// ConnectionError covers transport failures and unreadable bodies.
type ConnectionError struct {
	Message string
	Err     error
}

func (e *ConnectionError) Error() string {
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func connectionFailed(err error, format string, args ...any) *ConnectionError {
	return &ConnectionError{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// VendorError is a response whose envelope code is not 200.
type VendorError struct {
	Code   int
	Status string
}

func (e *VendorError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("error code %d", e.Code)
	}
	return fmt.Sprintf("error code %d: %s", e.Code, e.Status)
}
