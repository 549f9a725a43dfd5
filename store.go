package userauth

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// Default key prefixes for the credential store families.
const (
	DefaultUserKeyPrefix  = "user:"
	DefaultEmailKeyPrefix = "email:"
	DefaultResetKeyPrefix = "reset:token:"
)

// RedisCredentialStore implements CredentialStore over Redis. Records are
// JSON under user:<id>, the email index maps email:<email> to the user id,
// and reset:token:<token> maps to a user id with a store-enforced TTL.
type RedisCredentialStore struct {
	client      *redis.Client
	userPrefix  string
	emailPrefix string
	resetPrefix string
	logger      Logger
}

// NewRedisCredentialStore creates a store around an existing client.
func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{
		client:      client,
		userPrefix:  DefaultUserKeyPrefix,
		emailPrefix: DefaultEmailKeyPrefix,
		resetPrefix: DefaultResetKeyPrefix,
		logger:      defLogger{},
	}
}

// WithPrefixes overrides the key prefixes for the three key families.
func (s *RedisCredentialStore) WithPrefixes(user, email, reset string) *RedisCredentialStore {
	if user != "" {
		s.userPrefix = user
	}
	if email != "" {
		s.emailPrefix = email
	}
	if reset != "" {
		s.resetPrefix = reset
	}
	return s
}

// WithLogger overrides the logger used by the store.
func (s *RedisCredentialStore) WithLogger(logger Logger) *RedisCredentialStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *RedisCredentialStore) userKey(id string) string {
	return s.userPrefix + id
}

func (s *RedisCredentialStore) emailKey(email string) string {
	return s.emailPrefix + NormalizeEmail(email)
}

func (s *RedisCredentialStore) resetKey(token string) string {
	return s.resetPrefix + token
}

// CreateUser persists a new record and its email index entry. Exactly one
// entry may exist per email; a second registration fails with a conflict.
// The exists+set pair is not transactional, matching the store contract.
func (s *RedisCredentialStore) CreateUser(ctx context.Context, user *User) error {
	emailKey := s.emailKey(user.Email)

	n, err := s.client.Exists(ctx, emailKey).Result()
	if err != nil {
		return s.unavailable("exists", err)
	}
	if n > 0 {
		return ErrDuplicateEmail
	}

	if err := s.client.Set(ctx, emailKey, user.ID, 0).Err(); err != nil {
		return s.unavailable("set email index", err)
	}
	return s.SaveUser(ctx, user)
}

// GetUser loads a record by id.
func (s *RedisCredentialStore) GetUser(ctx context.Context, id string) (*User, error) {
	data, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return nil, ErrIdentityNotFound
		}
		return nil, s.unavailable("get user", err)
	}

	user := &User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "corrupt user record in store")
	}
	return user, nil
}

// SaveUser writes a record under its id key.
func (s *RedisCredentialStore) SaveUser(ctx context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize user record")
	}

	if err := s.client.Set(ctx, s.userKey(user.ID), data, 0).Err(); err != nil {
		return s.unavailable("set user", err)
	}
	return nil
}

// FindIDByEmail resolves the email index entry. The lookup is
// case-insensitive through key normalization.
func (s *RedisCredentialStore) FindIDByEmail(ctx context.Context, email string) (string, error) {
	id, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return "", ErrIdentityNotFound
		}
		return "", s.unavailable("get email index", err)
	}
	return id, nil
}

// AllUsers scans the user key family and loads every record. SCAN may
// yield a key more than once; each record is returned once.
func (s *RedisCredentialStore) AllUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	seen := map[string]struct{}{}

	iter := s.client.Scan(ctx, 0, s.userPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(s.userPrefix):]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		user, err := s.GetUser(ctx, id)
		if err != nil {
			if goerrors.Is(err, ErrIdentityNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	if err := iter.Err(); err != nil {
		return nil, s.unavailable("scan users", err)
	}

	return users, nil
}

// PutResetToken stores a reset-token mapping with a store-enforced expiry.
func (s *RedisCredentialStore) PutResetToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.client.SetEx(ctx, s.resetKey(token), userID, ttl).Err(); err != nil {
		return s.unavailable("setex reset token", err)
	}
	return nil
}

// GetResetToken resolves a reset-token mapping. Once the TTL has elapsed
// the key is gone; absence is the expiry signal.
func (s *RedisCredentialStore) GetResetToken(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, s.resetKey(token)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return "", ErrResetTokenInvalid
		}
		return "", s.unavailable("get reset token", err)
	}
	return userID, nil
}

// DeleteResetToken removes a mapping, enforcing single use.
func (s *RedisCredentialStore) DeleteResetToken(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.resetKey(token)).Err(); err != nil {
		return s.unavailable("del reset token", err)
	}
	return nil
}

// Ping checks store connectivity.
func (s *RedisCredentialStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.unavailable("ping", err)
	}
	return nil
}

func (s *RedisCredentialStore) unavailable(op string, err error) error {
	s.logger.Error("credential store %s failed: %v", op, err)
	return goerrors.Wrap(err, ErrStoreUnavailable.Category, ErrStoreUnavailable.Message).
		WithTextCode(ErrStoreUnavailable.TextCode).
		WithCode(ErrStoreUnavailable.Code)
}

var _ CredentialStore = (*RedisCredentialStore)(nil)
