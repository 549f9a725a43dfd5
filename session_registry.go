package userauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SessionRegistry is the authority over which token is a user's active
// session, backed by the single mutable token field on the user record.
//
// Issue and Revoke are plain get+set against the store: there is no lock or
// transaction around the token field. Two concurrent logins for the same
// user race and the last write wins; the displaced token fails IsCurrent on
// its next use, which is the intended single-session-per-user outcome.
type SessionRegistry struct {
	store  CredentialStore
	codec  TokenCodec
	logger Logger
}

// NewSessionRegistry creates a registry over the given store and codec.
func NewSessionRegistry(store CredentialStore, codec TokenCodec) *SessionRegistry {
	return &SessionRegistry{
		store:  store,
		codec:  codec,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the registry.
func (r *SessionRegistry) WithLogger(logger Logger) *SessionRegistry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Issue mints a fresh session token and writes it into the user's record,
// displacing any prior session. The passed record is mutated in place so
// callers can return it with the new token.
func (r *SessionRegistry) Issue(ctx context.Context, user *User, validity time.Duration) (string, error) {
	token, err := r.codec.Mint(user.ID, user.Role, validity)
	if err != nil {
		return "", err
	}

	user.Token = token
	if err := r.store.SaveUser(ctx, user); err != nil {
		return "", err
	}

	return token, nil
}

// Revoke clears the user's stored session token. Revoking a user that no
// longer exists is a no-op: there is no session left to invalidate.
func (r *SessionRegistry) Revoke(ctx context.Context, userID string) error {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) {
			return nil
		}
		return err
	}

	user.Token = ""
	return r.store.SaveUser(ctx, user)
}

// IsCurrent reports whether the presented token is the user's active
// session: the stored field must be non-empty and equal exactly.
func (r *SessionRegistry) IsCurrent(ctx context.Context, userID, token string) (bool, error) {
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	return user.Token != "" && user.Token == token, nil
}
