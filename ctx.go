package userauth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var userCtxKey = &contextKey{"user"}

// LocalsUserKey is the fiber locals key under which the auth gate binds the
// resolved user record.
const LocalsUserKey = "auth_user"

type contextKey struct {
	name string
}

// WithCurrentUser sets the User in the given context
func WithCurrentUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// CurrentUser finds the user from the context.
func CurrentUser(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// CurrentUserFromRoute extracts the user the auth gate bound to the request.
func CurrentUserFromRoute(c *fiber.Ctx) (*User, bool) {
	raw, ok := c.Locals(LocalsUserKey).(*User)
	return raw, ok
}
