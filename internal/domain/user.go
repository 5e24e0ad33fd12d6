package domain

import (
	"strings"
	"time"
)

// Role is a capability granted through the user_roles table.
type Role string

const (
	// RoleAdmin grants access to the moderation dashboard.
	RoleAdmin Role = "admin"
	// RoleMember is granted to every account at sign-up.
	RoleMember Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User represents an authenticated account.
// Workflows reference users by ID and never mutate them.
type User struct {
	Syncable
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// NormalizeEmail lowercases and trims an email for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Name returns the best available name to display for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Profile is the public face of a user, joined onto listings in the
// moderation dashboard.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileFor builds the profile that accompanies a freshly created user.
func ProfileFor(u *User) *Profile {
	return &Profile{
		ID:        u.ID,
		Name:      u.Name(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
