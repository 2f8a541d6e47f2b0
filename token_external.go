package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ExternalHMACValidator verifies session tokens minted by an external identity
// provider that shares an HMAC secret with us.
type ExternalHMACValidator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewExternalHMACValidator(secret []byte, issuer string) *ExternalHMACValidator {
	return &ExternalHMACValidator{secret: secret, issuer: issuer, now: time.Now}
}

func (v *ExternalHMACValidator) ProviderName() string {
	return ProviderHMAC
}

func (v *ExternalHMACValidator) Validate(tokenString string) (*SessionClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrTokenMalformed
	}

	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}

	return parseExternal(tokenString, keyFunc, v.issuer, v.now, "external_hmac",
		jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg())
}

// JWKSValidator verifies external session tokens with keys fetched from a
// JWKS endpoint. Keys are refreshed in the background until Close is called.
type JWKSValidator struct {
	jwks   *keyfunc.JWKS
	issuer string
	now    func() time.Time
}

// NewJWKSValidator fetches the key set at jwksURL and keeps it fresh
func NewJWKSValidator(jwksURL, issuer string, logger Logger) (*JWKSValidator, error) {
	logger = normalizeLogger(logger)

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh JWKS", "url", jwksURL, "error", err)
		},
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load JWKS").
			WithMetadata(map[string]any{"url": jwksURL})
	}

	return &JWKSValidator{jwks: jwks, issuer: issuer, now: time.Now}, nil
}

// NewJWKSValidatorFromJSON builds a validator from a static key set
func NewJWKSValidatorFromJSON(raw json.RawMessage, issuer string) (*JWKSValidator, error) {
	jwks, err := keyfunc.NewJSON(raw)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid JWKS document")
	}
	return &JWKSValidator{jwks: jwks, issuer: issuer, now: time.Now}, nil
}

func (v *JWKSValidator) ProviderName() string {
	return ProviderJWKS
}

func (v *JWKSValidator) Validate(tokenString string) (*SessionClaims, error) {
	return parseExternal(tokenString, v.jwks.Keyfunc, v.issuer, v.now, "external_jwks",
		jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg(),
		jwt.SigningMethodES256.Alg(), jwt.SigningMethodES384.Alg(), jwt.SigningMethodPS256.Alg(),
		jwt.SigningMethodEdDSA.Alg())
}

// Close stops the background refresh
func (v *JWKSValidator) Close() error {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
	return nil
}

// NewExternalValidators builds the verified external validators enabled in
// cfg. The returned closer stops any background work.
func NewExternalValidators(cfg Config, logger Logger) ([]TokenValidator, func() error, error) {
	var validators []TokenValidator
	closer := func() error { return nil }

	if secret := cfg.GetExternalHMACSecret(); secret != "" {
		validators = append(validators, NewExternalHMACValidator([]byte(secret), cfg.GetExternalIssuer()))
	}

	if url := cfg.GetExternalJWKSURL(); url != "" {
		jwks, err := NewJWKSValidator(url, cfg.GetExternalIssuer(), logger)
		if err != nil {
			return nil, closer, err
		}
		validators = append(validators, jwks)
		closer = jwks.Close
	}

	return validators, closer, nil
}

func parseExternal(tokenString string, keyFunc jwt.Keyfunc, issuer string, now func() time.Time, provider string, methods ...string) (*SessionClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc, parserOptions...)
	if err != nil {
		return nil, normalizeExternalError(err, provider)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	// admin rights are never granted by an external provider
	claims.IsAdmin = false

	return claims, nil
}

func normalizeExternalError(err error, provider string) error {
	base := ErrTokenMalformed
	if errors.Is(err, jwt.ErrTokenExpired) {
		base = ErrTokenExpired
	}
	return withSource(base, err, map[string]any{
		"provider": provider,
		"cause":    err.Error(),
	})
}
