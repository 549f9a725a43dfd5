package userauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ResetTokenValidity bounds both the signed expiry claim of a reset token
// and the TTL of its store mapping.
const ResetTokenValidity = 30 * time.Minute

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse reports the outcome of a reset request.
// Known is false when the email has no account; the HTTP layer returns the
// same generic 200 either way so responses cannot be used to enumerate
// registered emails.
type InitializePasswordResetResponse struct {
	ResetToken string
	Known      bool
}

type InitializePasswordResetHandler struct {
	store    CredentialStore
	codec    TokenCodec
	validity time.Duration
	logger   Logger
}

// NewInitializePasswordResetHandler creates a handler with the default
// 30-minute validity window.
func NewInitializePasswordResetHandler(store CredentialStore, codec TokenCodec) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		store:    store,
		codec:    codec,
		validity: ResetTokenValidity,
		logger:   defLogger{},
	}
}

// WithValidity overrides the reset window.
func (h *InitializePasswordResetHandler) WithValidity(validity time.Duration) *InitializePasswordResetHandler {
	if validity > 0 {
		h.validity = validity
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (*InitializePasswordResetResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := h.store.FindIDByEmail(ctx, event.Email)
	if err != nil {
		if TextCodeOf(err) == TextCodeIdentityNotFound {
			// No account: no token, no mapping, same outward response.
			return &InitializePasswordResetResponse{Known: false}, nil
		}
		return nil, err
	}

	token, err := h.codec.Mint(userID, "", h.validity)
	if err != nil {
		return nil, err
	}

	if err := h.store.PutResetToken(ctx, token, userID, h.validity); err != nil {
		return nil, err
	}

	// In a real deployment the token travels out-of-band via email; it is
	// returned in the response for now.
	return &InitializePasswordResetResponse{ResetToken: token, Known: true}, nil
}
