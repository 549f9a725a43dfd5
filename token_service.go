package userauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Verification is the tagged result of verifying a token. Exactly one of
// Claims or ExpiredUserID is set: expiry is a soft failure that still
// identifies whose session lapsed, so callers can clear the stored session.
// Structural failures (bad signature, undecodable token) are errors, not
// Verifications.
type Verification struct {
	Claims        *SessionClaims
	ExpiredUserID string
}

// Expired reports whether the token verified structurally but is past its
// expiry claim.
func (v Verification) Expired() bool {
	return v.Claims == nil && v.ExpiredUserID != ""
}

var _ TokenCodec = (*TokenServiceImpl)(nil)

// TokenServiceImpl implements the TokenCodec interface
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenCodec instance
func NewTokenService(signingKey []byte, issuer string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}
}

// Mint creates a signed token for the given user with the given validity.
// Session and reset tokens share the codec; they differ only in validity.
func (ts *TokenServiceImpl) Mint(userID string, role UserRole, validity time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UID:      userID,
		UserRole: role,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Parse verifies signature and structure and returns the claims. Expiry is
// NOT checked here; use Verify for the full contract.
func (ts *TokenServiceImpl) Parse(raw string) (*SessionClaims, error) {
	claims, err := ts.parse(raw)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return claims, nil
		}
		return nil, err
	}
	return claims, nil
}

// Verify validates a token and branches on expiry: a valid token yields its
// claims, an expired one yields only the embedded user id. Signature and
// decode failures propagate as errors.
func (ts *TokenServiceImpl) Verify(raw string) (Verification, error) {
	claims, err := ts.parse(raw)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return Verification{ExpiredUserID: claims.UserID()}, nil
		}
		return Verification{}, err
	}

	return Verification{Claims: claims}, nil
}

// parse runs the jwt library checks and maps failures onto the error
// taxonomy. On expiry the decoded claims are returned alongside the
// jwt.ErrTokenExpired error so callers can recover the subject.
func (ts *TokenServiceImpl) parse(raw string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token codec encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			// Signature verified, claims decoded; only the time check failed.
			return claims, err
		case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, goerrors.Wrap(err, ErrInvalidSignature.Category, ErrInvalidSignature.Message).
				WithTextCode(ErrInvalidSignature.TextCode).
				WithCode(ErrInvalidSignature.Code)
		default:
			return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(ErrTokenMalformed.Code)
		}
	}

	if !token.Valid {
		ts.logger.Error("token codec could not validate claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
