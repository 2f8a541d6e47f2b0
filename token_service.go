package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	DecodePathLocal      = "local"
	DecodePathExternal   = "external"
	DecodePathUnverified = "unverified"
)

// TokenObserver is notified about how tokens were accepted or why they
// were rejected.
type TokenObserver interface {
	TokenAccepted(path string)
	TokenRejected(reason string)
}

type noopTokenObserver struct{}

func (noopTokenObserver) TokenAccepted(string) {}
func (noopTokenObserver) TokenRejected(string) {}

// TokenService signs and decodes BookNook session and admin tokens
type TokenService struct {
	signingKey      []byte
	method          *jwt.SigningMethodHMAC
	issuer          string
	audience        jwt.ClaimStrings
	sessionTTL      time.Duration
	adminTTL        time.Duration
	external        *MultiTokenValidator
	allowUnverified bool
	observer        TokenObserver
	logger          Logger
	now             func() time.Time
}

type TokenOption func(*TokenService)

func WithTokenLogger(logger Logger) TokenOption {
	return func(ts *TokenService) {
		ts.logger = normalizeLogger(logger)
	}
}

// WithExternalValidators registers verified validators for tokens issued by
// an external identity provider. They are tried in order when a token does
// not verify against the local signing key.
func WithExternalValidators(validators ...TokenValidator) TokenOption {
	return func(ts *TokenService) {
		multi := NewMultiTokenValidator(validators...)
		if multi.Len() == 0 {
			ts.external = nil
			return
		}
		ts.external = multi
	}
}

// WithUnverifiedFallback toggles acceptance of session tokens whose signature
// could not be checked. Expiry and subject are still enforced.
func WithUnverifiedFallback(enabled bool) TokenOption {
	return func(ts *TokenService) {
		ts.allowUnverified = enabled
	}
}

func WithTokenObserver(observer TokenObserver) TokenOption {
	return func(ts *TokenService) {
		if observer == nil {
			observer = noopTokenObserver{}
		}
		ts.observer = observer
	}
}

func WithTokenClock(now func() time.Time) TokenOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a new TokenService from cfg
func NewTokenService(cfg Config, opts ...TokenOption) (*TokenService, error) {
	key := cfg.GetSigningKey()
	if key == "" {
		return nil, withSource(ErrInvalidSigningConfig, nil, map[string]any{"reason": "signing key is empty"})
	}

	methodName := cfg.GetSigningMethod()
	if methodName == "" {
		methodName = jwt.SigningMethodHS256.Alg()
	}

	method, ok := jwt.GetSigningMethod(strings.ToUpper(methodName)).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, withSource(ErrInvalidSigningConfig, nil, map[string]any{
			"reason": "signing method must be HMAC",
			"method": methodName,
		})
	}

	ts := &TokenService{
		signingKey:      []byte(key),
		method:          method,
		issuer:          cfg.GetIssuer(),
		audience:        cloneAudience(cfg.GetAudience()),
		sessionTTL:      minutes(cfg.GetTokenExpiration(), 30),
		adminTTL:        minutes(cfg.GetAdminTokenExpiration(), 30),
		allowUnverified: cfg.GetAllowUnverifiedExternalTokens(),
		observer:        noopTokenObserver{},
		logger:          defLogger{},
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts, nil
}

// SessionTTL returns the lifetime of session tokens
func (ts *TokenService) SessionTTL() time.Duration {
	return ts.sessionTTL
}

// AdminTTL returns the lifetime of admin tokens
func (ts *TokenService) AdminTTL() time.Duration {
	return ts.adminTTL
}

// Encode signs claims with an expiration of now+ttl. A ttl of zero or less
// yields a token that is already expired. Issuer, audience and token id are
// filled from defaults when empty.
func (ts *TokenService) Encode(claims SessionClaims, ttl time.Duration) (string, time.Time, error) {
	now := ts.now()
	expiresAt := now.Add(ttl)

	if claims.Issuer == "" {
		claims.Issuer = ts.issuer
	}
	if len(claims.Audience) == 0 {
		claims.Audience = cloneAudience(ts.audience)
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(ts.method, &claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// IssueSession mints a session token for account
func (ts *TokenService) IssueSession(account *Account) (string, time.Time, error) {
	if account == nil {
		return "", time.Time{}, goerrors.New("account is required", goerrors.CategoryBadInput)
	}
	return ts.Encode(SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: account.ID},
		Email:            account.Email,
	}, ts.sessionTTL)
}

// IssueAdmin mints an admin token. Only active admins can hold one.
func (ts *TokenService) IssueAdmin(account *Account) (string, time.Time, error) {
	return MintAdminToken(ts, account, AdminTokenOptions{})
}

// Decode verifies a session token. Tokens signed with the local key are
// accepted first, then tokens accepted by an external validator, and finally,
// only when the unverified fallback is enabled, tokens whose signature could
// not be checked.
func (ts *TokenService) Decode(raw string) (*SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		ts.observer.TokenRejected("empty")
		return nil, ErrTokenMalformed
	}

	claims, err := ts.parseLocal(raw)
	if err == nil {
		return ts.accept(DecodePathLocal, claims)
	}
	if IsTokenExpiredError(err) {
		ts.observer.TokenRejected("expired")
		return nil, err
	}
	localErr := err

	if ts.external != nil {
		var provider string
		claims, provider, err = ts.external.ValidateWithProvider(raw)
		if err == nil {
			return ts.accept(ExternalDecodePath(provider), claims)
		}
		if IsTokenExpiredError(err) {
			ts.observer.TokenRejected("expired")
			return nil, err
		}
		ts.logger.Debug("external validators rejected token", "providers", ts.external.Providers(), "error", err)
	}

	if !ts.allowUnverified {
		ts.observer.TokenRejected("invalid")
		return nil, localErr
	}

	claims, err = ts.parseUnverified(raw)
	if err != nil {
		if IsTokenExpiredError(err) {
			ts.observer.TokenRejected("expired")
		} else {
			ts.observer.TokenRejected("invalid")
		}
		return nil, err
	}

	ts.logger.Warn("accepted session token without signature verification", "sub", claims.Subject, "iss", claims.Issuer)
	return ts.accept(DecodePathUnverified, claims)
}

// DecodeAdmin verifies an admin token against the local key only. There is
// no external or unverified path and the is_admin claim must be set.
func (ts *TokenService) DecodeAdmin(raw string) (*SessionClaims, error) {
	claims, err := ts.parseLocal(strings.TrimSpace(raw))
	if err != nil {
		if IsTokenExpiredError(err) {
			ts.observer.TokenRejected("expired")
		} else {
			ts.observer.TokenRejected("invalid")
		}
		return nil, err
	}

	if !claims.IsAdmin {
		ts.observer.TokenRejected("not_admin")
		return nil, ErrTokenNotAdmin
	}

	if claims.Subject == "" {
		ts.observer.TokenRejected("missing_subject")
		return nil, ErrMissingSubject
	}

	ts.observer.TokenAccepted(DecodePathLocal)
	return claims, nil
}

func (ts *TokenService) accept(path string, claims *SessionClaims) (*SessionClaims, error) {
	if claims.Subject == "" {
		ts.observer.TokenRejected("missing_subject")
		return nil, ErrMissingSubject
	}
	ts.observer.TokenAccepted(path)
	return claims, nil
}

func (ts *TokenService) parseLocal(raw string) (*SessionClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		return nil, normalizeJWTError(err, DecodePathLocal)
	}

	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if !ts.audienceAccepted(claims.Audience) {
		return nil, withSource(ErrTokenMalformed, jwt.ErrTokenInvalidAudience, map[string]any{
			"path":     DecodePathLocal,
			"audience": []string(claims.Audience),
		})
	}

	return claims, nil
}

// audienceAccepted reports whether aud names at least one configured
// audience. Any token is accepted when no audience is configured.
func (ts *TokenService) audienceAccepted(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		for _, got := range aud {
			if got == want {
				return true
			}
		}
	}
	return false
}

func (ts *TokenService) parseUnverified(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, normalizeJWTError(err, DecodePathUnverified)
	}

	validator := jwt.NewValidator(jwt.WithTimeFunc(ts.now))
	if err := validator.Validate(claims); err != nil {
		return nil, normalizeJWTError(err, DecodePathUnverified)
	}

	claims.IsAdmin = false

	return claims, nil
}

// normalizeJWTError maps jwt errors to our sentinels. Expired tokens map to
// ErrTokenExpired itself, everything else is a malformed token carrying the
// parser error as its source.
func normalizeJWTError(err error, path string) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return withSource(ErrTokenMalformed, err, map[string]any{"path": path})
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil {
		return
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

func cloneAudience(aud []string) jwt.ClaimStrings {
	if len(aud) == 0 {
		return nil
	}
	out := make(jwt.ClaimStrings, len(aud))
	copy(out, aud)
	return out
}

func minutes(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Minute
}
