package userauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	store  CredentialStore
	codec  TokenCodec
	logger Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(store CredentialStore, codec TokenCodec) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		store:  store,
		codec:  codec,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// The store mapping and the signed expiry claim are independent checks
	// and both must pass. An evicted mapping reads as invalid-or-expired.
	userID, err := h.store.GetResetToken(ctx, event.ResetToken)
	if err != nil {
		return err
	}

	verification, err := h.codec.Verify(event.ResetToken)
	if err != nil {
		return ErrResetTokenInvalid
	}

	if verification.Expired() {
		if err := h.store.DeleteResetToken(ctx, event.ResetToken); err != nil {
			h.logger.Warn("failed to delete expired reset token: %v", err)
		}
		return ErrResetTokenExpired
	}

	if verification.Claims.UserID() != userID {
		return ErrResetTokenInvalid
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := HashPassword(event.NewPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	// Changing the password also clears the session token, forcing a fresh
	// login with the new credentials.
	user.PasswordHash = hash
	user.Token = ""
	if err := h.store.SaveUser(ctx, user); err != nil {
		return err
	}

	// Single use: the mapping dies with the successful reset.
	if err := h.store.DeleteResetToken(ctx, event.ResetToken); err != nil {
		h.logger.Warn("failed to delete consumed reset token: %v", err)
	}

	return nil
}
