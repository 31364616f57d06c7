package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotAuthenticated is returned when there is no live session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrorType categorizes auth failures for UI messages and metrics.
type ErrorType int

const (
	// ErrTypeInvalidCredentials indicates a wrong email/password or revoked token.
	ErrTypeInvalidCredentials ErrorType = iota
	// ErrTypeNetwork indicates the provider could not be reached.
	ErrTypeNetwork
	// ErrTypeRateLimited indicates the provider throttled the request.
	ErrTypeRateLimited
	// ErrTypeUnknown is anything else.
	ErrTypeUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidCredentials:
		return "invalid_credentials"
	case ErrTypeNetwork:
		return "network_error"
	case ErrTypeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a classified failure from the auth provider.
type Error struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classifyStatus maps a provider response status to an Error.
func classifyStatus(status int, msg string) *Error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = "Invalid login credentials"
		}
		return &Error{Type: ErrTypeInvalidCredentials, StatusCode: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &Error{Type: ErrTypeRateLimited, StatusCode: status, Message: "Too many sign-in attempts, try again later"}
	case status >= 500:
		return &Error{Type: ErrTypeNetwork, StatusCode: status, Message: fmt.Sprintf("Auth provider error (%d), try again later", status)}
	default:
		if msg == "" {
			msg = fmt.Sprintf("Auth provider returned %d", status)
		}
		return &Error{Type: ErrTypeUnknown, StatusCode: status, Message: msg}
	}
}

// classifyTransport wraps a transport error.
func classifyTransport(err error) *Error {
	errLower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		log.Error().Err(err).Msg("Network error talking to auth provider")
		return &Error{Type: ErrTypeNetwork, Message: "Network error - check your connection", Err: err}
	default:
		log.Error().Err(err).Msg("Unknown error talking to auth provider")
		return &Error{Type: ErrTypeUnknown, Message: "Auth request failed", Err: err}
	}
}
