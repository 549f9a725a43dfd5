package userauth_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userauth "github.com/statusdeck/go-userauth"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		want     string
		wantCode string
	}{
		{name: "valid bearer header", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "missing header", header: "", wantCode: userauth.TextCodeMissingCredential},
		{name: "whitespace-only header", header: "   ", wantCode: userauth.TextCodeMalformedCredential},
		{name: "wrong scheme", header: "Token abc.def.ghi", wantCode: userauth.TextCodeMalformedCredential},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", wantCode: userauth.TextCodeMalformedCredential},
		{name: "scheme without token", header: "Bearer", wantCode: userauth.TextCodeMissingCredential},
		{name: "scheme with blank token", header: "Bearer   ", wantCode: userauth.TextCodeMissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := userauth.BearerToken(tt.header)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, userauth.TextCodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

type gateFixture struct {
	app      *fiber.App
	store    *userauth.RedisCredentialStore
	codec    userauth.TokenCodec
	registry *userauth.SessionRegistry
	gate     *userauth.AuthGate
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	store, _ := newTestStore(t)
	codec := newTestCodec()
	registry := userauth.NewSessionRegistry(store, codec)
	gate := userauth.NewAuthGate(store, codec, registry)

	app := fiber.New()
	app.Get("/protected", gate.RequireAuth(), func(c *fiber.Ctx) error {
		user, ok := userauth.CurrentUserFromRoute(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{"email": user.Email})
	})
	app.Get("/operators", gate.RequireAuth(userauth.RoleAdmin, userauth.RoleSRE), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return &gateFixture{app: app, store: store, codec: codec, registry: registry, gate: gate}
}

func (f *gateFixture) login(t *testing.T, email, password string, role userauth.UserRole) (*userauth.User, string) {
	t.Helper()

	user := seedUser(t, f.store, email, password, role)
	token, err := f.registry.Issue(context.Background(), user, time.Hour)
	require.NoError(t, err)

	return user, token
}

func TestRequireAuthHeaderFailures(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "no header", header: "", wantCode: userauth.TextCodeMissingCredential},
		{name: "non bearer scheme", header: "Basic dXNlcg==", wantCode: userauth.TextCodeMalformedCredential},
		{name: "empty token", header: "Bearer ", wantCode: userauth.TextCodeMissingCredential},
		{name: "undecodable token", header: "Bearer not-a-token", wantCode: userauth.TextCodeTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, body := testRequest(t, f.app, req)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errCode(body))
		})
	}
}

func TestRequireAuthAcceptsActiveSession(t *testing.T) {
	f := newGateFixture(t)
	_, token := f.login(t, "jane@example.com", "Secret1password", userauth.RoleUser)

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "jane@example.com", body["email"])
}

func TestRequireAuthRejectsTamperedToken(t *testing.T) {
	f := newGateFixture(t)
	_, token := f.login(t, "jane@example.com", "Secret1password", userauth.RoleUser)

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, token[:len(token)-2]+"zz")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, userauth.TextCodeInvalidSignature, errCode(body))
}

func TestRequireAuthExpiredTokenClearsStoredSession(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	user := seedUser(t, f.store, "jane@example.com", "Secret1password", userauth.RoleUser)

	// An already-expired token written as the active session.
	expired, err := f.codec.Mint(user.ID, user.Role, -time.Minute)
	require.NoError(t, err)
	user.Token = expired
	require.NoError(t, f.store.SaveUser(ctx, user))

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, expired)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, userauth.TextCodeExpiredSession, errCode(body))

	loaded, err := f.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Token, "expired session must be cleared from the store")
}

func TestRequireAuthRejectsRevokedSession(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	user, token := f.login(t, "jane@example.com", "Secret1password", userauth.RoleUser)
	require.NoError(t, f.registry.Revoke(ctx, user.ID))

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, userauth.TextCodeRevokedSession, errCode(body))
}

func TestRequireAuthRejectsDisplacedSession(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	user, first := f.login(t, "jane@example.com", "Secret1password", userauth.RoleUser)

	_, err := f.registry.Issue(ctx, user, time.Hour)
	require.NoError(t, err)

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, first)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, userauth.TextCodeRevokedSession, errCode(body))
}

func TestRequireAuthRejectsUnknownSubject(t *testing.T) {
	f := newGateFixture(t)

	// A well-signed token whose user record does not exist.
	token, err := f.codec.Mint("ghost-user", userauth.RoleUser, time.Hour)
	require.NoError(t, err)

	resp, body := doJSON(t, f.app, fiber.MethodGet, "/protected", nil, token)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, userauth.TextCodeUnknownSubject, errCode(body))
}

func TestRequireAuthRoleAllowList(t *testing.T) {
	f := newGateFixture(t)

	_, userToken := f.login(t, "user@example.com", "Secret1password", userauth.RoleUser)
	_, adminToken := f.login(t, "admin@example.com", "Secret1password", userauth.RoleAdmin)
	_, sreToken := f.login(t, "sre@example.com", "Secret1password", userauth.RoleSRE)

	t.Run("plain user is rejected", func(t *testing.T) {
		resp, body := doJSON(t, f.app, fiber.MethodGet, "/operators", nil, userToken)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		assert.Equal(t, userauth.TextCodeInsufficientPermission, errCode(body))
	})

	t.Run("admin passes", func(t *testing.T) {
		resp, _ := doJSON(t, f.app, fiber.MethodGet, "/operators", nil, adminToken)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("sre passes", func(t *testing.T) {
		resp, _ := doJSON(t, f.app, fiber.MethodGet, "/operators", nil, sreToken)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
