package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound matches a RemoteError carrying a 404.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches a RemoteError carrying a 401.
	ErrUnauthorized = errors.New("unauthorized")
)

// NetworkFailure is the message of a RemoteError raised when no
// response was received.
const NetworkFailure = "network failure"

// RemoteError is returned by every gateway operation that fails, either
// with a non-2xx status or before any response arrived. StatusCode is 0
// in the latter case.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is lets callers use errors.Is(err, ErrNotFound) and
// errors.Is(err, ErrUnauthorized).
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsNetworkFailure reports whether err is a RemoteError without a status.
func IsNetworkFailure(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == 0
}

func networkError(err error) *RemoteError {
	return &RemoteError{Message: NetworkFailure, Err: err}
}

func statusMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("request failed: %s", text)
	}
	return fmt.Sprintf("request failed with status %d", code)
}
