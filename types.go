package userauth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenCodec mints and validates the signed tokens used for sessions and
// password resets.
type TokenCodec interface {
	Mint(userID string, role UserRole, validity time.Duration) (string, error)
	Parse(raw string) (*SessionClaims, error)
	Verify(raw string) (Verification, error)
}

// CredentialStore is the external key-value collaborator holding user
// records, the email lookup index, and the TTL-backed reset-token mappings.
// Absence of a reset key is the expiry signal; implementations must not
// surface expired keys.
type CredentialStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
	FindIDByEmail(ctx context.Context, email string) (string, error)
	AllUsers(ctx context.Context) ([]*User, error)

	PutResetToken(ctx context.Context, token, userID string, ttl time.Duration) error
	GetResetToken(ctx context.Context, token string) (string, error)
	DeleteResetToken(ctx context.Context, token string) error

	Ping(ctx context.Context) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetTokenExpiration() int
	GetResetTokenValidity() time.Duration
	GetRedisAddr() string
	GetRedisDB() int
	GetListenAddr() string
	GetUserKeyPrefix() string
	GetEmailKeyPrefix() string
	GetResetKeyPrefix() string
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
