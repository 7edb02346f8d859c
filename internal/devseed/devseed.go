// Package devseed inserts development accounts. Seeding is idempotent per email.
package devseed

import (
	"context"
	"fmt"
	"time"

	identitydomain "cuidame-health/backend/internal/identity/domain"
	identityrepo "cuidame-health/backend/internal/identity/repository"
	"cuidame-health/backend/internal/security"
	userdomain "cuidame-health/backend/internal/user/domain"
	userrepo "cuidame-health/backend/internal/user/repository"
)

// Account is one development login.
type Account struct {
	UserID     string
	IdentityID string
	Email      string
	Name       string
	Role       string
	Password   string
	// Legacy stores a bcrypt hash so the first login exercises the rehash path.
	Legacy bool
}

// DefaultAccounts are the accounts created by cmd/seed.
var DefaultAccounts = []Account{
	{UserID: "dev-user-001", IdentityID: "dev-identity-001", Email: "a@x.com", Name: "Legacy User", Role: userdomain.RoleUser, Password: "secret1", Legacy: true},
	{UserID: "dev-user-002", IdentityID: "dev-identity-002", Email: "dev@example.com", Name: "Dev User", Role: userdomain.RoleUser, Password: "password123"},
	{UserID: "dev-admin-001", IdentityID: "dev-identity-003", Email: "admin@example.com", Name: "Dev Admin", Role: userdomain.RoleAdmin, Password: "admin-password"},
}

// Seeder writes accounts through the user and identity repositories.
type Seeder struct {
	Users      userrepo.Repository
	Identities identityrepo.Repository
	Hasher     *security.Hasher
	Now        func() time.Time
}

// Seed creates every account whose email is not yet taken and returns how many were created.
func (s *Seeder) Seed(ctx context.Context, accounts []Account) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	created := 0
	for _, a := range accounts {
		existing, err := s.Users.GetByEmail(ctx, a.Email)
		if err != nil {
			return created, fmt.Errorf("seed check %s: %w", a.Email, err)
		}
		if existing != nil {
			continue
		}
		hash, err := s.hash(a)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", a.Email, err)
		}
		ts := now().UTC()
		u := &userdomain.User{
			ID:        a.UserID,
			Email:     a.Email,
			Name:      a.Name,
			Role:      a.Role,
			Status:    userdomain.UserStatusActive,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return created, fmt.Errorf("create user %s: %w", a.Email, err)
		}
		ident := &identitydomain.Identity{
			ID:           a.IdentityID,
			UserID:       a.UserID,
			Provider:     identitydomain.IdentityProviderLocal,
			ProviderID:   a.Email,
			PasswordHash: hash,
			CreatedAt:    ts,
		}
		if err := s.Identities.Create(ctx, ident); err != nil {
			return created, fmt.Errorf("create identity %s: %w", a.Email, err)
		}
		created++
	}
	return created, nil
}

func (s *Seeder) hash(a Account) (string, error) {
	if a.Legacy {
		return security.HashLegacy([]byte(a.Password), 0)
	}
	h := s.Hasher
	if h == nil {
		h = security.NewHasher(security.DefaultArgon2Params)
	}
	return h.Hash([]byte(a.Password))
}
