package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// AdminTokenOptions controls how MintAdminToken issues admin tokens.
type AdminTokenOptions struct {
	// TTL overrides the admin token expiration. Zero uses TokenService defaults.
	TTL time.Duration
	// Issuer overrides the default issuer if provided.
	Issuer string
	// Audience overrides the default audience if provided.
	Audience []string
}

// MintAdminToken mints an admin token for account. The account must be an
// active admin at the time of minting.
func MintAdminToken(ts *TokenService, account *Account, opts AdminTokenOptions) (string, time.Time, error) {
	if ts == nil {
		return "", time.Time{}, goerrors.New("token service is required", goerrors.CategoryBadInput)
	}
	if account == nil {
		return "", time.Time{}, goerrors.New("account is required", goerrors.CategoryBadInput)
	}
	if !account.IsAdmin {
		return "", time.Time{}, ErrForbidden
	}
	if !account.IsActive {
		return "", time.Time{}, ErrDeactivated
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = ts.adminTTL
	}
	if ttl < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	return ts.Encode(SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   opts.Issuer,
			Subject:  account.ID,
			Audience: cloneAudience(opts.Audience),
		},
		Email:   account.Email,
		IsAdmin: true,
	}, ttl)
}
