package domain

import (
	"errors"
	"time"
)

// User is the account profile. Credentials live on the local identity, never here.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
