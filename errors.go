package userauth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Machine-discriminable error kinds. Every guard failure maps to one of
// these text codes; clients branch on the code, not the message.
const (
	TextCodeMissingCredential      = "MISSING_CREDENTIAL"
	TextCodeMalformedCredential    = "MALFORMED_CREDENTIAL"
	TextCodeInvalidCreds           = "INVALID_CREDENTIALS"
	TextCodeInvalidSignature       = "INVALID_SIGNATURE"
	TextCodeTokenMalformed         = "TOKEN_MALFORMED"
	TextCodeExpiredSession         = "EXPIRED_SESSION"
	TextCodeRevokedSession         = "REVOKED_SESSION"
	TextCodeUnknownSubject         = "UNKNOWN_SUBJECT"
	TextCodeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	TextCodeEmailTaken             = "EMAIL_TAKEN"
	TextCodeResetTokenInvalid      = "RESET_TOKEN_INVALID"
	TextCodeResetTokenExpired      = "RESET_TOKEN_EXPIRED"
	TextCodeEmptyPassword          = "EMPTY_PASSWORD"
	TextCodeInvalidRole            = "INVALID_ROLE"
	TextCodeStoreUnavailable       = "STORE_UNAVAILABLE"
	TextCodeIdentityNotFound       = "IDENTITY_NOT_FOUND"
)

// ErrMissingCredential is returned when the Authorization header or its
// token value is absent.
var ErrMissingCredential = goerrors.New("authorization credential is missing", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingCredential).
	WithCode(goerrors.CodeForbidden)

// ErrMalformedCredential is returned when the Authorization header does not
// carry the Bearer scheme.
var ErrMalformedCredential = goerrors.New("authorization credential is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeMalformedCredential).
	WithCode(goerrors.CodeForbidden)

// ErrMismatchedHashAndPassword is returned when a password does not verify
// against the stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSignature is returned for tokens whose signature does not verify.
var ErrInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature).
	WithCode(goerrors.CodeForbidden)

// ErrTokenMalformed is returned for tokens that cannot be decoded.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeForbidden)

// ErrExpiredSession is returned when a session token is past its expiry
// claim. The auth gate also clears the stored session as a side effect.
var ErrExpiredSession = goerrors.New("session has expired, log in again", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpiredSession).
	WithCode(goerrors.CodeForbidden)

// ErrRevokedSession is returned when a token no longer matches the user's
// stored session: a newer login displaced it, or the user logged out.
var ErrRevokedSession = goerrors.New("session has been revoked", goerrors.CategoryAuth).
	WithTextCode(TextCodeRevokedSession).
	WithCode(goerrors.CodeForbidden)

// ErrUnknownSubject is returned when a token verifies but its user record
// is gone from the store.
var ErrUnknownSubject = goerrors.New("token subject is unknown", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnknownSubject).
	WithCode(goerrors.CodeForbidden)

// ErrInsufficientPermission is returned when the claimed role is not in the
// operation's allow-list.
var ErrInsufficientPermission = goerrors.New("insufficient permission for this operation", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPermission).
	WithCode(goerrors.CodeForbidden)

// ErrIdentityNotFound is returned for lookups of users that do not exist.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateEmail is returned when registering an email that already has
// a credential store entry.
var ErrDuplicateEmail = goerrors.New("a user with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrResetTokenInvalid is returned when a reset token has no store mapping,
// or its embedded subject does not match the mapping.
var ErrResetTokenInvalid = goerrors.New("password reset token is invalid or expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTokenInvalid).
	WithCode(goerrors.CodeForbidden)

// ErrResetTokenExpired is returned when the reset token's own signed expiry
// has passed, regardless of the store mapping.
var ErrResetTokenExpired = goerrors.New("password reset token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeResetTokenExpired).
	WithCode(goerrors.CodeForbidden)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole rejects roles outside the closed set.
var ErrInvalidRole = goerrors.New("role is not one of USER, SRE, ADMIN", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrStoreUnavailable is surfaced when the credential store cannot be
// reached. The message stays generic; connection detail goes to logs only.
var ErrStoreUnavailable = goerrors.New("credential store unavailable", goerrors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(goerrors.CodeInternal)

// IsAuthGateError reports whether err belongs to the guard's 403 taxonomy.
func IsAuthGateError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.TextCode {
	case TextCodeMissingCredential,
		TextCodeMalformedCredential,
		TextCodeInvalidSignature,
		TextCodeTokenMalformed,
		TextCodeExpiredSession,
		TextCodeRevokedSession,
		TextCodeUnknownSubject,
		TextCodeInsufficientPermission:
		return true
	}
	return false
}

// TextCodeOf extracts the machine code from a structured error, or ""
// for plain errors.
func TextCodeOf(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
