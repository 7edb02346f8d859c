package domain

import "time"

// AuditLog represents an audit event. UserID is empty for events with no resolved user
// (for example a login failure for an unknown email).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the session lifecycle.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionRefresh        = "refresh"
	ActionLogout         = "logout"
	ActionLogoutAll      = "logout_all"
	ActionSessionEvicted = "session_evicted"
	ActionPasswordRehash = "password_rehashed"
)

const (
	ResourceSession  = "session"
	ResourceIdentity = "identity"
)
