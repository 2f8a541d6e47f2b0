// Package config loads the service configuration with koanf. Sources are
// layered: built in defaults, an optional YAML file, BOOKNOOK_ environment
// variables and finally command line flags.
package config

import (
	"errors"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates nested keys: BOOKNOOK_EXTERNAL__JWKS_URL is external.jwks_url.
const EnvPrefix = "BOOKNOOK_"

const delim = "."

type External struct {
	HMACSecret string `koanf:"hmac_secret" json:"-"`
	JWKSURL    string `koanf:"jwks_url" json:"jwks_url"`
	Issuer     string `koanf:"issuer" json:"issuer"`
}

type DefaultAdmin struct {
	Email    string `koanf:"email" json:"email"`
	Password string `koanf:"password" json:"-"`
	Name     string `koanf:"name" json:"name"`
}

// Config is the service configuration. It implements auth.Config.
type Config struct {
	SigningKey                    string       `koanf:"signing_key" json:"-"`
	SigningMethod                 string       `koanf:"signing_method" json:"signing_method"`
	Issuer                        string       `koanf:"issuer" json:"issuer"`
	Audience                      []string     `koanf:"audience" json:"audience"`
	TokenExpirationMinutes        int          `koanf:"token_expiration_minutes" json:"token_expiration_minutes"`
	AdminTokenExpirationMinutes   int          `koanf:"admin_token_expiration_minutes" json:"admin_token_expiration_minutes"`
	HashAlgorithm                 string       `koanf:"hash_algorithm" json:"hash_algorithm"`
	BcryptCost                    int          `koanf:"bcrypt_cost" json:"bcrypt_cost"`
	External                      External     `koanf:"external" json:"external"`
	AllowUnverifiedExternalTokens bool         `koanf:"allow_unverified_external_tokens" json:"allow_unverified_external_tokens"`
	UseHashid                     bool         `koanf:"use_hashid" json:"use_hashid"`
	DatabaseURL                   string       `koanf:"database_url" json:"database_url"`
	ServerAddr                    string       `koanf:"server_addr" json:"server_addr"`
	DefaultAdmin                  DefaultAdmin `koanf:"default_admin" json:"default_admin"`
	CORSOrigins                   []string     `koanf:"cors_origins" json:"cors_origins"`
	Debug                         bool         `koanf:"debug" json:"debug"`
}

// Defaults returns the built in configuration values
func Defaults() map[string]any {
	return map[string]any{
		"signing_method":                   "HS256",
		"issuer":                           "",
		"audience":                         []string{},
		"token_expiration_minutes":         30,
		"admin_token_expiration_minutes":   30,
		"hash_algorithm":                   "bcrypt",
		"bcrypt_cost":                      12,
		"external.hmac_secret":             "",
		"external.jwks_url":                "",
		"external.issuer":                  "",
		"allow_unverified_external_tokens": false,
		"use_hashid":                       false,
		"database_url":                     "file:booknook.db?cache=shared",
		"server_addr":                      ":8000",
		"default_admin.email":              "",
		"default_admin.password":           "",
		"default_admin.name":               "Admin",
		"cors_origins":                     []string{"*"},
		"debug":                            false,
	}
}

// LoadOptions selects the sources layered over the defaults
type LoadOptions struct {
	// File is an optional YAML file. A missing file is an error only when
	// Required is set.
	File     string
	Required bool
	Flags    *pflag.FlagSet
}

// Load builds a validated Config
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(Defaults(), delim), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load config defaults")
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err == nil {
			if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse config file "+opts.File)
			}
		} else if opts.Required {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "config file not found: "+opts.File)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load environment config")
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, delim, k, flagKey)
		if err := k.Load(provider, nil); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load flag config")
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", delim)
}

// flags use dashes, config keys use underscores
func flagKey(f *pflag.Flag) (string, any) {
	return strings.ReplaceAll(f.Name, "-", "_"), f.Value.String()
}

// RegisterFlags adds the flags Load understands to fs
func RegisterFlags(fs *pflag.FlagSet) {
	defaults := Defaults()
	fs.String("database-url", defaults["database_url"].(string), "database DSN (postgres:// URL or sqlite file)")
	fs.String("server-addr", defaults["server_addr"].(string), "HTTP listen address")
	fs.String("signing-key", "", "HMAC key used to sign tokens")
	fs.String("hash-algorithm", defaults["hash_algorithm"].(string), "password hash for new digests: bcrypt or argon2id")
	fs.Int("token-expiration-minutes", defaults["token_expiration_minutes"].(int), "session token lifetime in minutes")
	fs.Int("admin-token-expiration-minutes", defaults["admin_token_expiration_minutes"].(int), "admin token lifetime in minutes")
	fs.Bool("debug", false, "enable debug logging")
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SigningMethod, validation.Required, validation.In("HS256", "HS384", "HS512")),
		validation.Field(&c.TokenExpirationMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.AdminTokenExpirationMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.HashAlgorithm, validation.Required, validation.In("bcrypt", "argon2id")),
		validation.Field(&c.BcryptCost, validation.Min(4), validation.Max(31)),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.ServerAddr, validation.Required),
		validation.Field(&c.External),
		validation.Field(&c.DefaultAdmin),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid configuration: "+err.Error())
	}
	return nil
}

func (e External) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.JWKSURL, is.URL),
		validation.Field(&e.HMACSecret, validation.Length(32, 0)),
	)
}

// Validate requires email and password together, or neither
func (d DefaultAdmin) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Email, is.Email, validation.By(requiredWith(d.Password))),
		validation.Field(&d.Password, validation.Length(6, 0), validation.By(requiredWith(d.Email))),
	)
}

func requiredWith(other string) validation.RuleFunc {
	return func(value any) error {
		if other != "" && value.(string) == "" {
			return errors.New("cannot be blank")
		}
		return nil
	}
}
