package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is recorded when a fetch is attempted without a session token.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrEmptyLocation is returned when a location is empty or whitespace only.
	ErrEmptyLocation = errors.New("location must not be empty")
)

// AuthError is returned when the auth API rejects the supplied credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "invalid credentials"
	}
	return "invalid credentials: " + e.Message
}

// NetworkError wraps transport failures and timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is returned when the remote API answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Describe returns a short user-facing message for an error captured in a cache entry.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		apiErr  *APIError
		netErr  *NetworkError
		authErr *AuthError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.As(err, &authErr):
		return "Please log in again"
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		return "Location not found"
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		return "Please log in again"
	case errors.As(err, &apiErr):
		return "The weather service rejected the request"
	case errors.As(err, &netErr):
		return "Weather service unreachable, please try again later"
	default:
		return "Please try again later"
	}
}
