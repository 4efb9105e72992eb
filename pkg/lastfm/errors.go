package lastfm

import "fmt"

// Error is a structured Last.fm API error carrying the provider's error
// code. It implements error and supports errors.Is matching by code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary reports whether the request should be retried. Only the two
// service-availability codes qualify; everything else is either a caller
// bug or an auth problem that a retry cannot fix.
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline, ErrCodeTempUnavailable:
		return true
	default:
		return false
	}
}

// AuthFailure reports whether the error indicates stale or invalid
// credentials rather than a transient or caller problem.
func (e *Error) AuthFailure() bool {
	switch e.Code {
	case ErrCodeAuthenticationFailed, ErrCodeInvalidSessionKey, ErrCodeInvalidAPIKey,
		ErrCodeUnauthorizedToken, ErrCodeExpiredToken:
		return true
	default:
		return false
	}
}

// Last.fm API error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

// ErrNoSessionKey is returned when a scrobble is attempted without a
// session key.
var ErrNoSessionKey = fmt.Errorf("lastfm: session key required")
