package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMalformedToken     = errors.New("persistent login token is malformed")
	ErrTokenNotFound      = errors.New("persistent login token not found or expired")
	ErrTokenInvalid       = errors.New("persistent login token is invalid")
	ErrSelectorConflict   = errors.New("persistent login selector already exists")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)

type Role string

const (
	RoleManager   Role = "manager"
	RoleDeveloper Role = "developer"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	Status       UserStatus
	Avatar       string // empty means no avatar
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) Active() bool {
	return u.Status == UserActive
}

// Identity is what the auth core hands back to callers once a user is proven.
// It never carries the password hash.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   Role
	Avatar string
}

func (u *User) Identity() Identity {
	return Identity{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Avatar: u.Avatar,
	}
}

// PersistentLogin is one "remember me" token row. Only the digest of the
// validator is ever stored.
type PersistentLogin struct {
	Selector      string
	ValidatorHash string
	UserID        string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

func (t *PersistentLogin) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Session is the short-lived authenticated identity bound to an interaction.
type Session struct {
	ID        string
	Identity  Identity
	CreatedAt time.Time
	ExpiresAt time.Time
}
