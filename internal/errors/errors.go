// Package errors provides custom error types for the dude client and proxy.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrInvalidFragment = errors.New("invalid stream fragment")
	ErrCorruptStorage  = errors.New("corrupt stored data")
	ErrNotFound        = errors.New("conversation not found")
	ErrSendInFlight    = errors.New("a send is already in flight")
	ErrEmptySubmit     = errors.New("nothing to send")
)

// TransportError represents a failed request to the backend: a non-success
// HTTP status or a missing body before any fragment was yielded.
type TransportError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Body)
	}
	return fmt.Sprintf("server error [%d] at %s", e.StatusCode, e.Endpoint)
}

// NewTransportError creates a new TransportError
func NewTransportError(statusCode int, endpoint, body string) *TransportError {
	return &TransportError{StatusCode: statusCode, Endpoint: endpoint, Body: body}
}

// NetworkError wraps a connection-level failure (DNS, refused, timeout).
type NetworkError struct {
	Operation string
	Endpoint  string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s at %s: %v", e.Operation, e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(operation, endpoint string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Endpoint: endpoint, Err: err}
}

// FragmentError represents a single malformed stream line. It is recovered
// by skipping the line; it never aborts the stream.
type FragmentError struct {
	Line string
	Err  error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("malformed stream fragment: %v", e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Is allows comparison with the ErrInvalidFragment sentinel
func (e *FragmentError) Is(target error) bool {
	if target == ErrInvalidFragment {
		return true
	}
	_, ok := target.(*FragmentError)
	return ok
}

// NewFragmentError creates a new FragmentError
func NewFragmentError(line string, err error) *FragmentError {
	return &FragmentError{Line: line, Err: err}
}

// StorageError represents unreadable or unparsable persisted data. The
// collection loader recovers by discarding the data and starting fresh.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error for key %q: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is allows comparison with the ErrCorruptStorage sentinel
func (e *StorageError) Is(target error) bool {
	if target == ErrCorruptStorage {
		return true
	}
	_, ok := target.(*StorageError)
	return ok
}

// NewStorageError creates a new StorageError
func NewStorageError(key string, err error) *StorageError {
	return &StorageError{Key: key, Err: err}
}

// AvatarError represents a failed avatar generation. It is surfaced to the
// user as a dismissable message and never touches conversation state.
type AvatarError struct {
	Message string
}

func (e *AvatarError) Error() string {
	if e.Message == "" {
		return "could not generate a new avatar at the moment"
	}
	return fmt.Sprintf("avatar generation failed: %s", e.Message)
}

// NewAvatarError creates a new AvatarError
func NewAvatarError(message string) *AvatarError {
	return &AvatarError{Message: message}
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNetworkError reports whether err is a NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// GetHTTPStatus extracts the HTTP status from a TransportError, or 0.
func GetHTTPStatus(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
