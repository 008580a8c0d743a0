package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is delivered to the session-expired handler and wrapped
// into the error returned to every request that was waiting on a failed refresh.
var ErrSessionExpired = errors.New("session expired")

// ErrNoRefreshToken means a refresh was needed but none is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Kind classifies API failures for callers that render them.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
}

// Kind maps the status code to a Kind.
func (e *APIError) Kind() Kind {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// TransportError wraps a failure to get any response at all. It is never retried.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func statusIs(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsForbidden reports whether err is a 403 response.
func IsForbidden(err error) bool { return statusIs(err, http.StatusForbidden) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind() == KindValidation
}

// LoginPath is where a shell sends the user when the session ends. An
// expired session carries a marker so the login view can explain why.
func LoginPath(sessionExpired bool) string {
	if sessionExpired {
		return "/login?sessionExpired=true"
	}
	return "/login"
}
