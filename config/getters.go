package config

import auth "github.com/goliatone/go-booknook-auth"

var _ auth.Config = (*Config)(nil)

func (c Config) GetSigningKey() string                  { return c.SigningKey }
func (c Config) GetSigningMethod() string               { return c.SigningMethod }
func (c Config) GetIssuer() string                      { return c.Issuer }
func (c Config) GetAudience() []string                  { return c.Audience }
func (c Config) GetTokenExpiration() int                { return c.TokenExpirationMinutes }
func (c Config) GetAdminTokenExpiration() int           { return c.AdminTokenExpirationMinutes }
func (c Config) GetHashAlgorithm() string               { return c.HashAlgorithm }
func (c Config) GetBcryptCost() int                     { return c.BcryptCost }
func (c Config) GetExternalHMACSecret() string          { return c.External.HMACSecret }
func (c Config) GetExternalJWKSURL() string             { return c.External.JWKSURL }
func (c Config) GetExternalIssuer() string              { return c.External.Issuer }
func (c Config) GetAllowUnverifiedExternalTokens() bool { return c.AllowUnverifiedExternalTokens }
func (c Config) GetUseHashid() bool                     { return c.UseHashid }

func (c Config) GetDefaultAdmin() auth.DefaultAdmin {
	return auth.DefaultAdmin{
		Email:    c.DefaultAdmin.Email,
		Password: c.DefaultAdmin.Password,
		Name:     c.DefaultAdmin.Name,
	}
}
