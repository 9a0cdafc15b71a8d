package domain

import (
	"errors"
	"time"
)

// DefaultRole is assigned to every newly created account.
const DefaultRole = "user"

// Profile is the per-user document created at sign-up.
type Profile struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Login is the credential record keyed by email.
type Login struct {
	Email        string
	UID          string
	PasswordHash string
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
type ProfileUpdate struct {
	Name  *string
	Phone *string
}

// Session is an authenticated session issued at sign-up or sign-in.
type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"token"`
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Sentinel errors shared by account storage and session backends.
var (
	ErrEmailTaken     = errors.New("domain: email already in use")
	ErrSessionInvalid = errors.New("domain: session invalid or expired")
)
