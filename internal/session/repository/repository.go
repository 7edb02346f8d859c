package repository

import (
	"context"
	"time"

	"cuidame-health/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Lookups return (nil, nil) when no row matches.
// Implementations must be safe for concurrent use.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByID(ctx context.Context, id string) (*domain.Session, error)
	FindByAccessToken(ctx context.Context, token string) (*domain.Session, error)
	FindByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	// FindActiveByUser returns the user's active sessions oldest-first.
	FindActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)

	// UpdateTokens rotates the session's token pair in place. Returns domain.ErrSessionNotFound
	// when the session is gone, inactive, or no longer holds r.PreviousRefreshToken.
	UpdateTokens(ctx context.Context, id string, r domain.Rotation) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error

	Deactivate(ctx context.Context, id string) error
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)
	DeactivateByAccessToken(ctx context.Context, token string) (bool, error)

	// PurgeExpired deactivates active sessions whose refresh token expired at or before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	// PurgeStaleInactive deactivates active sessions whose last activity is before cutoff.
	PurgeStaleInactive(ctx context.Context, cutoff time.Time) (int64, error)
	// PurgeNeverUsed deactivates active sessions never used and created before cutoff.
	PurgeNeverUsed(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteRetired hard-deletes inactive sessions whose last activity is before cutoff.
	DeleteRetired(ctx context.Context, cutoff time.Time) (int64, error)

	// ResolveAccess looks the session up by access token and classifies it at now.
	// A session past its access expiry is reported as ResolutionExpired and, once its refresh
	// expiry has passed too, deactivated. Access expiry alone leaves the session active so the
	// client can still refresh it after its access token lapses.
	ResolveAccess(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error)
	// ResolveRefresh is ResolveAccess for the refresh token and refresh expiry.
	ResolveRefresh(ctx context.Context, token string, now time.Time) (*domain.Session, domain.Resolution, error)
}
