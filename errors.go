package auth

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotAuthenticated     = "NOT_AUTHENTICATED"
	TextCodeAccountDisabled      = "ACCOUNT_DISABLED"
	TextCodeInsufficientPriv     = "INSUFFICIENT_PRIVILEGE"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTokenNotAdmin        = "TOKEN_NOT_ADMIN"
	TextCodeMissingSubject       = "TOKEN_MISSING_SUBJECT"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeAccountConflict      = "ACCOUNT_CONFLICT"
	TextCodeEmailRegistered      = "EMAIL_REGISTERED"
	TextCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	TextCodeUnsupportedHash      = "UNSUPPORTED_HASH"
	TextCodeSelfModification     = "SELF_MODIFICATION"
	TextCodeInvalidSigningConfig = "INVALID_SIGNING_CONFIG"
	TextCodeValidationFailed     = "VALIDATION_FAILED"
)

// ErrUnauthenticated is returned when a request carries no usable identity
var ErrUnauthenticated = goerrors.New("Could not validate credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrDeactivated is returned when the resolved account is not active
var ErrDeactivated = goerrors.New("User account is deactivated", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when the account lacks admin rights
var ErrForbidden = goerrors.New("Not enough permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPriv).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned for tokens past their exp claim
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed covers bad signatures, bad encodings and bad claims
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenNotAdmin is returned by DecodeAdmin for tokens without is_admin
var ErrTokenNotAdmin = goerrors.New("token is not an admin token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenNotAdmin).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = goerrors.New("token has no subject", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingSubject).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when a password does not match
var ErrMismatchedHashAndPassword = goerrors.New("Incorrect email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be an empty string", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrUnsupportedHash is returned when a digest has an unknown format
var ErrUnsupportedHash = goerrors.New("unsupported password hash format", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnsupportedHash).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountConflict is returned when an insert hits a unique constraint
var ErrAccountConflict = goerrors.New("account already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountConflict).
	WithCode(goerrors.CodeConflict)

// ErrEmailRegistered is returned by registration for a taken email
var ErrEmailRegistered = goerrors.New("Email already registered", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmailRegistered).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotFound is returned when no account matches a lookup
var ErrAccountNotFound = goerrors.New("User not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrSelfModification is returned when an admin tries to change their own
// privilege or status flags
var ErrSelfModification = goerrors.New("Cannot modify your own admin or active status", goerrors.CategoryBadInput).
	WithTextCode(TextCodeSelfModification).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidSigningConfig is returned when the signing key or method is unusable
var ErrInvalidSigningConfig = goerrors.New("invalid token signing configuration", goerrors.CategoryInternal).
	WithTextCode(TextCodeInvalidSigningConfig).
	WithCode(goerrors.CodeInternal)

// HasTextCode reports whether err, or any error it wraps, is a rich error
// with the given text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if richErr, ok := e.(*goerrors.Error); ok && richErr.TextCode == code {
			return true
		}
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// withSource returns a copy of base carrying err as its source and meta as
// metadata. The package level sentinels are never mutated.
func withSource(base *goerrors.Error, err error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone = clone.WithMetadata(meta)
	}
	return clone
}

// validationError reports invalid input with the validator's message
func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithTextCode(TextCodeValidationFailed).
		WithCode(http.StatusUnprocessableEntity)
}
