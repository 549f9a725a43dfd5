package userauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userauth "github.com/statusdeck/go-userauth"
)

func TestSessionRegistryIssue(t *testing.T) {
	store, _ := newTestStore(t)
	registry := userauth.NewSessionRegistry(store, newTestCodec())
	ctx := context.Background()

	user := seedUser(t, store, "jane@example.com", "Secret1password", userauth.RoleUser)

	token, err := registry.Issue(ctx, user, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The record is mutated in place and persisted.
	assert.Equal(t, token, user.Token)

	loaded, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token, loaded.Token)

	current, err := registry.IsCurrent(ctx, user.ID, token)
	require.NoError(t, err)
	assert.True(t, current)
}

func TestSessionRegistryNewLoginDisplacesOldSession(t *testing.T) {
	store, _ := newTestStore(t)
	registry := userauth.NewSessionRegistry(store, newTestCodec())
	ctx := context.Background()

	user := seedUser(t, store, "jane@example.com", "Secret1password", userauth.RoleUser)

	first, err := registry.Issue(ctx, user, time.Hour)
	require.NoError(t, err)

	second, err := registry.Issue(ctx, user, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	current, err := registry.IsCurrent(ctx, user.ID, first)
	require.NoError(t, err)
	assert.False(t, current, "displaced session must no longer read as current")

	current, err = registry.IsCurrent(ctx, user.ID, second)
	require.NoError(t, err)
	assert.True(t, current)
}

func TestSessionRegistryRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	registry := userauth.NewSessionRegistry(store, newTestCodec())
	ctx := context.Background()

	user := seedUser(t, store, "jane@example.com", "Secret1password", userauth.RoleUser)

	token, err := registry.Issue(ctx, user, time.Hour)
	require.NoError(t, err)

	require.NoError(t, registry.Revoke(ctx, user.ID))

	current, err := registry.IsCurrent(ctx, user.ID, token)
	require.NoError(t, err)
	assert.False(t, current)

	loaded, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Token)
}

func TestSessionRegistryRevokeUnknownUserIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	registry := userauth.NewSessionRegistry(store, newTestCodec())

	assert.NoError(t, registry.Revoke(context.Background(), "nobody"))
}

func TestSessionRegistryIsCurrentWithoutSession(t *testing.T) {
	store, _ := newTestStore(t)
	registry := userauth.NewSessionRegistry(store, newTestCodec())
	ctx := context.Background()

	user := seedUser(t, store, "jane@example.com", "Secret1password", userauth.RoleUser)

	// No session issued: even the "empty token" probe must not match.
	current, err := registry.IsCurrent(ctx, user.ID, "")
	require.NoError(t, err)
	assert.False(t, current)

	current, err = registry.IsCurrent(ctx, user.ID, "random-token")
	require.NoError(t, err)
	assert.False(t, current)
}
