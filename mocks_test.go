package userauth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	userauth "github.com/statusdeck/go-userauth"
)

const (
	testSigningKey = "test-signing-key"
	testIssuer     = "test-issuer"
)

func newTestStore(t *testing.T) (*userauth.RedisCredentialStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return userauth.NewRedisCredentialStore(client), mr
}

func newTestCodec() userauth.TokenCodec {
	return userauth.NewTokenService([]byte(testSigningKey), testIssuer, nil)
}

// seedUser registers a user directly against the store, bypassing HTTP.
func seedUser(t *testing.T, store userauth.CredentialStore, email, password string, role userauth.UserRole) *userauth.User {
	t.Helper()

	hash, err := userauth.HashPassword(password)
	require.NoError(t, err)

	user := &userauth.User{
		ID:           "usr-" + strings.ReplaceAll(email, "@", "-at-"),
		FirstName:    "Test",
		LastName:     "User",
		Email:        userauth.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))

	return user
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	// No deadline: bcrypt-backed handlers outlive the default test timeout.
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	decoded := map[string]any{}
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp, decoded
}

// testRequest runs a prepared request against the app and decodes the
// JSON body, if any.
func testRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	decoded := map[string]any{}
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return resp, decoded
}

func errCode(body map[string]any) string {
	code, _ := body["code"].(string)
	return code
}

func bodyUser(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	user, ok := body["user"].(map[string]any)
	require.True(t, ok, "response has no user object: %v", body)
	return user
}
