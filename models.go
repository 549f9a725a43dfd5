package userauth

import (
	"strings"
	"time"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role (no administrative surface)
	RoleUser UserRole = "USER"
	// RoleSRE is an operator role (list, inspect, and update users)
	RoleSRE UserRole = "SRE"
	// RoleAdmin is the administrative role
	RoleAdmin UserRole = "ADMIN"
)

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch strings.ToUpper(r) {
	case RoleUser, RoleSRE, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole parses a string into a UserRole. Matching is case-insensitive;
// the canonical uppercase form is returned.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(roleStr)))
	return role, IsValidRole(role)
}

// GetAllRoles returns the closed role set.
func GetAllRoles() []UserRole {
	return []UserRole{RoleUser, RoleSRE, RoleAdmin}
}

// User is the credential store record. Token holds the single currently
// valid session token; the empty string means no active session.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         UserRole  `json:"role"`
	Token        string    `json:"token"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the outward representation of a user record. It never
// carries the password hash. The token is present in authenticated-self
// contexts (login, verify) and withheld from admin-facing listings.
type PublicUser struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the outward representation including the session token.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Token:     u.Token,
		CreatedAt: u.CreatedAt,
	}
}

// Redacted returns the outward representation with the token withheld.
func (u *User) Redacted() PublicUser {
	p := u.Public()
	p.Token = ""
	return p
}

// NormalizeEmail lowercases and trims an email for use as a lookup key.
// The email index is case-insensitive: A@B.com and a@b.com collide.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
