package domain

import "time"

// Session is one logical login: a user paired with the current access/refresh token pair.
// Rows are retired by clearing IsActive and kept for history until purged.
type Session struct {
	ID               string
	UserID           string
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time  // access token expiry
	RefreshExpiresAt time.Time  // refresh token expiry
	LastUsedAt       *time.Time // nil until the first authenticated request
	CreatedAt        time.Time
	IsActive         bool
	DeviceInfo       string
	DeviceName       string
	DeviceType       string
	IPAddress        string
	UserAgent        string
}

// AccessUsable reports whether the session may authorize an API call at now.
func (s *Session) AccessUsable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// RefreshUsable reports whether the session may be rotated at now.
func (s *Session) RefreshUsable(now time.Time) bool {
	return s.IsActive && now.Before(s.RefreshExpiresAt)
}

// LastActivity returns LastUsedAt, or CreatedAt for a session that was never used.
func (s *Session) LastActivity() time.Time {
	if s.LastUsedAt != nil {
		return *s.LastUsedAt
	}
	return s.CreatedAt
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

// Rotation is the new token pair written to a session on refresh.
// When PreviousRefreshToken is set the write only applies if the session still holds it,
// so two concurrent refreshes of the same token cannot both succeed.
type Rotation struct {
	PreviousRefreshToken string
	AccessToken          string
	RefreshToken         string
	ExpiresAt            time.Time
	RefreshExpiresAt     time.Time
	UsedAt               time.Time
}

// Resolution is the outcome of resolving a presented token to a session.
// Resolving is a read with a side effect: an active session that can no longer be refreshed
// is deactivated by the resolving call.
type Resolution int

const (
	ResolutionNotFound Resolution = iota
	ResolutionUsable
	// ResolutionExpired: the presented token's kind is past its expiry. The row is deactivated
	// when its refresh expiry has passed too; an expired access token alone leaves it refreshable.
	ResolutionExpired
	ResolutionInactive // already retired
)

func (r Resolution) String() string {
	switch r {
	case ResolutionUsable:
		return "usable"
	case ResolutionExpired:
		return "expired"
	case ResolutionInactive:
		return "inactive"
	default:
		return "not_found"
	}
}

// Summary is the client-facing view of a session. It never carries token values.
type Summary struct {
	ID               string
	DeviceInfo       string
	DeviceName       string
	DeviceType       string
	IPAddress        string
	UserAgent        string
	CreatedAt        time.Time
	LastUsedAt       *time.Time
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	IsCurrent        bool
}

// Summarize builds the redacted view of s.
func Summarize(s *Session, currentSessionID string) Summary {
	sum := Summary{
		ID:               s.ID,
		DeviceInfo:       s.DeviceInfo,
		DeviceName:       s.DeviceName,
		DeviceType:       s.DeviceType,
		IPAddress:        s.IPAddress,
		UserAgent:        s.UserAgent,
		CreatedAt:        s.CreatedAt,
		ExpiresAt:        s.ExpiresAt,
		RefreshExpiresAt: s.RefreshExpiresAt,
		IsCurrent:        currentSessionID != "" && s.ID == currentSessionID,
	}
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		sum.LastUsedAt = &t
	}
	return sum
}

// SweepResult counts sessions deactivated by one sweep, per criterion.
type SweepResult struct {
	Expired   int64
	Inactive  int64
	NeverUsed int64
}

// Total returns the number of sessions deactivated by the sweep.
func (r SweepResult) Total() int64 {
	return r.Expired + r.Inactive + r.NeverUsed
}

// PurgeResult counts retired session rows hard-deleted by a purge.
type PurgeResult struct {
	Deleted int64
}
