package userauth

import (
	"errors"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// SessionTokenValidity is the default lifetime of a login session.
const SessionTokenValidity = 24 * time.Hour

// passwordStrength enforces the unified password policy: at least six
// characters with one uppercase letter, one lowercase letter, and a digit.
func passwordStrength(value any) error {
	password, _ := value.(string)
	if password == "" {
		// Required is reported separately.
		return nil
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if len(password) < 6 || !upper || !lower || !digit {
		return errors.New("must be at least 6 characters with an uppercase letter, a lowercase letter and a digit")
	}
	return nil
}

// validRole accepts any casing of the closed role set.
func validRole(value any) error {
	role, _ := value.(string)
	if role == "" {
		return nil
	}
	if _, ok := ParseRole(role); !ok {
		return errors.New("must be one of USER, SRE, ADMIN")
	}
	return nil
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Validate will validate the payload, reporting every violated field.
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordStrength)),
		validation.Field(&r.Role, validation.Required, validation.By(validRole)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetToken, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.By(passwordStrength)),
	)
}

// UpdateUserPayload carries the admin-updatable fields. Absent fields are
// left untouched; email, id, and password are immutable through this
// operation.
type UpdateUserPayload struct {
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
	Role      *string `json:"role"`
}

// Validate will run validation rules
func (r UpdateUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty),
		validation.Field(&r.LastName, validation.NilOrNotEmpty),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.By(func(v any) error {
			if role, ok := v.(*string); ok && role != nil {
				return validRole(*role)
			}
			return nil
		})),
	)
}

type AuthControllerRoutes struct {
	Register       string
	Login          string
	VerifyToken    string
	Logout         string
	ForgotPassword string
	ResetPassword  string
	Users          string
	Health         string
}

type AuthController struct {
	Logger          Logger
	Store           CredentialStore
	Codec           TokenCodec
	Registry        *SessionRegistry
	Gate            *AuthGate
	Routes          *AuthControllerRoutes
	SessionValidity time.Duration

	register    *RegisterUserHandler
	resetInit   *InitializePasswordResetHandler
	resetFinish *FinalizePasswordResetHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the logger on the controller and every
// component it owns.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithSessionValidity overrides the session token lifetime.
func WithSessionValidity(validity time.Duration) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if validity > 0 {
			c.SessionValidity = validity
		}
		return c
	}
}

// WithResetValidity overrides the password reset window.
func WithResetValidity(validity time.Duration) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if c.resetInit != nil {
			c.resetInit.WithValidity(validity)
		}
		return c
	}
}

// NewAuthController wires the auth surface over a store and token codec.
func NewAuthController(store CredentialStore, codec TokenCodec, opts ...AuthControllerOption) *AuthController {
	if store == nil {
		panic("Missing CredentialStore in auth controller...")
	}
	if codec == nil {
		panic("Missing TokenCodec in auth controller...")
	}

	registry := NewSessionRegistry(store, codec)

	c := &AuthController{
		Logger:          defLogger{},
		Store:           store,
		Codec:           codec,
		Registry:        registry,
		Gate:            NewAuthGate(store, codec, registry),
		SessionValidity: SessionTokenValidity,
		Routes: &AuthControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			VerifyToken:    "/verify-token",
			Logout:         "/logout",
			ForgotPassword: "/forgot-password",
			ResetPassword:  "/reset-password",
			Users:          "/users",
			Health:         "/health",
		},
		register:    NewRegisterUserHandler(store),
		resetInit:   NewInitializePasswordResetHandler(store, codec),
		resetFinish: NewFinalizePasswordResetHandler(store, codec),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Registry.WithLogger(c.Logger)
	c.Gate.WithLogger(c.Logger)
	c.register.WithLogger(c.Logger)
	c.resetInit.WithLogger(c.Logger)
	c.resetFinish.WithLogger(c.Logger)

	return c
}

// RegisterAuthRoutes mounts the auth surface on a fiber router.
func RegisterAuthRoutes(app fiber.Router, controller *AuthController) {
	admin := controller.Gate.RequireAuth(RoleAdmin, RoleSRE)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Get(controller.Routes.VerifyToken, controller.VerifyToken)
	app.Post(controller.Routes.Logout, controller.Gate.RequireAuth(), controller.LogoutPost)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPasswordPost)
	app.Post(controller.Routes.ResetPassword, controller.ResetPasswordPost)

	app.Get(controller.Routes.Users, admin, controller.ListUsers)
	app.Get(controller.Routes.Users+"/role/:role", admin, controller.ListUsersByRole)
	app.Get(controller.Routes.Users+"/:id", admin, controller.FindUser)
	app.Put(controller.Routes.Users+"/:id", admin, controller.UpdateUser)

	app.Get(controller.Routes.Health, controller.Health)
}

// RegisterPost creates a new user. The token field starts empty:
// registration does not open a session.
func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)
	if err := c.BodyParser(payload); err != nil {
		return respondError(c, badBody(err))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	user, err := a.register.Execute(c.UserContext(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
		Role:      payload.Role,
	})
	if err != nil {
		a.Logger.Error("registration failed: %v", err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "user created successfully",
		"user":    user.Public(),
	})
}

// LoginPost checks credentials and issues a fresh session token,
// displacing any prior session for the user.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return respondError(c, badBody(err))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()

	userID, err := a.Store.FindIDByEmail(ctx, payload.Email)
	if err != nil {
		return respondError(c, err)
	}

	user, err := a.Store.GetUser(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	if err := ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		a.Logger.Info("login rejected for %s", user.ID)
		return respondError(c, ErrMismatchedHashAndPassword)
	}

	if _, err := a.Registry.Issue(ctx, user, a.SessionValidity); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "successfully logged in",
		"user":    user.Public(),
	})
}

// VerifyToken is the read-only session introspection endpoint: the same
// token-side checks the gate runs, without a role requirement.
func (a *AuthController) VerifyToken(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return respondError(c, err)
	}

	user, _, err := a.Gate.Resolve(c.UserContext(), token)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "session is active",
		"user":    user.Public(),
	})
}

// LogoutPost revokes the current session. Runs behind the auth gate.
func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	user, ok := CurrentUserFromRoute(c)
	if !ok {
		return respondError(c, ErrMissingCredential)
	}

	if err := a.Registry.Revoke(c.UserContext(), user.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "successfully logged out",
	})
}

// ForgotPasswordPost issues a reset token. Whether or not the email has an
// account, well-formed requests get a 200 with the same generic message.
func (a *AuthController) ForgotPasswordPost(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return respondError(c, badBody(err))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{
		"message": "if this email exists, a reset link has been sent",
	}

	resp, err := a.resetInit.Execute(c.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		// Store trouble must not leak account existence either.
		a.Logger.Error("password reset initialization failed: %v", err)
		return c.JSON(body)
	}

	if resp.Known {
		body["reset_token"] = resp.ResetToken
	}

	return c.JSON(body)
}

// ResetPasswordPost consumes a reset token and sets a new password.
func (a *AuthController) ResetPasswordPost(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return respondError(c, badBody(err))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	err := a.resetFinish.Execute(c.UserContext(), FinalizePasswordResetMessage{
		ResetToken:  payload.ResetToken,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "password reset successfully",
	})
}

// ListUsers returns every user record, tokens withheld.
func (a *AuthController) ListUsers(c *fiber.Ctx) error {
	users, err := a.Store.AllUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"users": redactAll(users),
		"count": len(users),
	})
}

// ListUsersByRole returns the users holding the given role.
func (a *AuthController) ListUsersByRole(c *fiber.Ctx) error {
	role, ok := ParseRole(c.Params("role"))
	if !ok {
		return respondError(c, ErrInvalidRole)
	}

	users, err := a.Store.AllUsers(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	matched := make([]*User, 0, len(users))
	for _, user := range users {
		if user.Role == role {
			matched = append(matched, user)
		}
	}

	return c.JSON(fiber.Map{
		"users": redactAll(matched),
		"count": len(matched),
	})
}

// FindUser returns one user record by id, token withheld.
func (a *AuthController) FindUser(c *fiber.Ctx) error {
	user, err := a.Store.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user.Redacted(),
	})
}

// UpdateUser modifies the mutable fields of a user record.
func (a *AuthController) UpdateUser(c *fiber.Ctx) error {
	payload := new(UpdateUserPayload)
	if err := c.BodyParser(payload); err != nil {
		return respondError(c, badBody(err))
	}

	if err := payload.Validate(); err != nil {
		return respondError(c, err)
	}

	ctx := c.UserContext()

	user, err := a.Store.GetUser(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	if payload.FirstName != nil {
		user.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		user.LastName = *payload.LastName
	}
	if payload.Role != nil {
		role, _ := ParseRole(*payload.Role)
		user.Role = role
	}

	if err := a.Store.SaveUser(ctx, user); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "user updated successfully",
		"user":    user.Redacted(),
	})
}

// Health reports store connectivity.
func (a *AuthController) Health(c *fiber.Ctx) error {
	if err := a.Store.Ping(c.UserContext()); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func redactAll(users []*User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for _, user := range users {
		out = append(out, user.Redacted())
	}
	return out
}

func badBody(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
		WithCode(goerrors.CodeBadRequest)
}

// respondError translates the error taxonomy into a JSON response. The
// machine code travels in "code"; internal failures collapse into a
// generic 500 with no detail.
func respondError(c *fiber.Ctx, err error) error {
	var fieldErrs validation.Errors
	if goerrors.As(err, &fieldErrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fieldErrs,
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		status := richErr.Code
		if status == 0 {
			status = statusForCategory(richErr.Category)
		}
		return c.Status(status).JSON(fiber.Map{
			"error": richErr.Message,
			"code":  richErr.TextCode,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "an unexpected error occurred",
	})
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
