package auth

// External identity providers that can vouch for a session token
const (
	ProviderHMAC = "hmac"
	ProviderJWKS = "jwks"
)

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// ProviderNamer is implemented by validators that stand for a named external
// identity provider.
type ProviderNamer interface {
	ProviderName() string
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*SessionClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*SessionClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// MultiTokenValidator asks each external provider in turn to vouch for a
// token. A malformed result moves on to the next provider, any other error
// stops the search.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Len returns the number of validators
func (m *MultiTokenValidator) Len() int {
	return len(m.validators)
}

// Providers lists the provider names in the order they are tried
func (m *MultiTokenValidator) Providers() []string {
	names := make([]string, 0, len(m.validators))
	for _, v := range m.validators {
		names = append(names, providerName(v))
	}
	return names
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (*SessionClaims, error) {
	claims, _, err := m.ValidateWithProvider(tokenString)
	return claims, err
}

// ValidateWithProvider returns the claims together with the name of the
// provider that accepted the token.
func (m *MultiTokenValidator) ValidateWithProvider(tokenString string) (*SessionClaims, string, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, providerName(v), nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, providerName(v), err
	}
	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", ErrTokenMalformed
}

// ExternalDecodePath is the decode path reported for tokens accepted by
// provider, e.g. "external:jwks".
func ExternalDecodePath(provider string) string {
	if provider == "" {
		return DecodePathExternal
	}
	return DecodePathExternal + ":" + provider
}

func providerName(v TokenValidator) string {
	if named, ok := v.(ProviderNamer); ok {
		return named.ProviderName()
	}
	return ""
}
