package userauth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AuthGate guards protected operations. Checks run in strict order and
// short-circuit at the first failure; every failure maps to a 403 with a
// distinct machine code, so the response status alone never reveals which
// check tripped.
type AuthGate struct {
	codec    TokenCodec
	store    CredentialStore
	registry *SessionRegistry
	logger   Logger
}

// NewAuthGate creates a gate over the given collaborators.
func NewAuthGate(store CredentialStore, codec TokenCodec, registry *SessionRegistry) *AuthGate {
	return &AuthGate{
		codec:    codec,
		store:    store,
		registry: registry,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the gate.
func (g *AuthGate) WithLogger(logger Logger) *AuthGate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// BearerToken extracts the token from an Authorization header value.
// Missing header or missing token value fail as missing credential; a
// blank header or a scheme other than the Bearer literal fails as
// malformed.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}

	parts := strings.Fields(header)
	if len(parts) == 0 || parts[0] != "Bearer" {
		return "", ErrMalformedCredential
	}
	if len(parts) == 1 || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMissingCredential
	}

	return parts[1], nil
}

// Resolve runs the token-side checks: codec verification, subject lookup,
// and the session registry cross-check. It returns the resolved user record
// and the token claims. An expired token also clears the stored session so
// it cannot later read as current.
func (g *AuthGate) Resolve(ctx context.Context, token string) (*User, *SessionClaims, error) {
	verification, err := g.codec.Verify(token)
	if err != nil {
		return nil, nil, err
	}

	if verification.Expired() {
		if err := g.registry.Revoke(ctx, verification.ExpiredUserID); err != nil {
			g.logger.Warn("failed to clear expired session for %s: %v", verification.ExpiredUserID, err)
		}
		return nil, nil, ErrExpiredSession
	}

	claims := verification.Claims

	user, err := g.store.GetUser(ctx, claims.UserID())
	if err != nil {
		if TextCodeOf(err) == TextCodeIdentityNotFound {
			return nil, nil, ErrUnknownSubject
		}
		return nil, nil, err
	}

	current, err := g.registry.IsCurrent(ctx, user.ID, token)
	if err != nil {
		return nil, nil, err
	}
	if !current {
		return nil, nil, ErrRevokedSession
	}

	return user, claims, nil
}

// RequireAuth returns a middleware enforcing the full guard sequence. When
// roles are given, the claimed role must match one of them
// (case-insensitive) or the request fails with insufficient permission.
// On success the resolved user is bound to the request for the handler.
func (g *AuthGate) RequireAuth(roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return respondError(c, err)
		}

		user, claims, err := g.Resolve(c.UserContext(), token)
		if err != nil {
			return respondError(c, err)
		}

		if len(roles) > 0 && !roleAllowed(claims.Role(), roles) {
			return respondError(c, ErrInsufficientPermission)
		}

		c.Locals(LocalsUserKey, user)
		c.SetUserContext(WithCurrentUser(c.UserContext(), user))
		return c.Next()
	}
}

func roleAllowed(role UserRole, allowed []UserRole) bool {
	for _, r := range allowed {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}
