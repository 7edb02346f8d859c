package domain

import "time"

// Identity holds a user's local credential. PasswordHash is either a legacy bcrypt
// hash or a current argon2id hash; the scheme is sniffed from its prefix.
type Identity struct {
	ID           string
	UserID       string
	Provider     IdentityProvider
	ProviderID   string
	PasswordHash string // empty if no password was ever set
	CreatedAt    time.Time
}

type IdentityProvider string

const (
	IdentityProviderLocal IdentityProvider = "local"
)

// Principal is the authenticated identity attached to a request once its bearer token
// resolves to a usable session.
type Principal struct {
	UserID    string
	Email     string
	Name      string
	Role      string
	SessionID string
}
