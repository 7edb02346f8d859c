package domain

import "errors"

// Authentication failures. All of them surface to clients as Unauthenticated; the
// token-state ones (expired, inactive) keep distinct messages so clients know
// whether to refresh or to log in again.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("missing bearer token")
	ErrWrongTokenKind     = errors.New("wrong token kind")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionInactive    = errors.New("session inactive")
)

// ErrForbidden is returned when an authenticated caller's role is not allowed for the operation.
var ErrForbidden = errors.New("permission denied")

var (
	// ErrLogoutTargetRequired is returned when a single-session logout names neither
	// (or both) of session id and access token.
	ErrLogoutTargetRequired = errors.New("exactly one of session_id or access_token is required")
	// ErrSessionIDNotFound is returned when an explicitly requested session does not
	// exist or does not belong to the caller.
	ErrSessionIDNotFound = errors.New("requested session not found")
	// ErrDuplicateToken is returned by stores when a token value is already held by another session.
	ErrDuplicateToken = errors.New("token already in use by another session")
)
