package interceptors

import (
	"context"

	identitydomain "cuidame-health/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	principalKey    = contextKey{"principal"}
	refreshTokenKey = contextKey{"refresh_token"}
)

// WithPrincipal returns a context carrying the authenticated principal.
// Handlers read it via GetPrincipal, GetUserID, GetSessionID.
func WithPrincipal(ctx context.Context, p identitydomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal returns the principal from context and true if set; otherwise zero value, false.
func GetPrincipal(ctx context.Context) (identitydomain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identitydomain.Principal)
	return p, ok
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok || p.UserID == "" {
		return "", false
	}
	return p.UserID, true
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	p, ok := GetPrincipal(ctx)
	if !ok || p.SessionID == "" {
		return "", false
	}
	return p.SessionID, true
}

// WithRefreshToken stores the refresh token accepted by the refresh gate.
func WithRefreshToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, refreshTokenKey, token)
}

// GetRefreshToken returns the refresh token accepted by the refresh gate, if any.
func GetRefreshToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(refreshTokenKey).(string)
	return v, ok && v != ""
}
