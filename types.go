package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenExpiration is the session token TTL in minutes
	GetTokenExpiration() int
	// GetAdminTokenExpiration is the admin token TTL in minutes
	GetAdminTokenExpiration() int
	GetHashAlgorithm() string
	GetBcryptCost() int
	GetExternalHMACSecret() string
	GetExternalJWKSURL() string
	GetExternalIssuer() string
	GetAllowUnverifiedExternalTokens() bool
	GetUseHashid() bool
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// PasswordHasher is a PasswordAuthenticator that can also answer a plain
// yes/no for a password and digest pair.
type PasswordHasher interface {
	PasswordAuthenticator
	Verify(password, hash string) bool
}

// SessionDecoder decodes session tokens, including external ones when the
// token policy allows them.
type SessionDecoder interface {
	Decode(token string) (*SessionClaims, error)
}

// AdminDecoder decodes admin tokens with strict verification.
type AdminDecoder interface {
	DecodeAdmin(token string) (*SessionClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Print("[ERR] AUTH " + render(format, args...))
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Print("[WRN] AUTH " + render(format, args...))
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Print("[INF] AUTH " + render(format, args...))
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Print("[DBG] AUTH " + render(format, args...))
}

// render supports both printf style calls and message plus key/value pairs.
func render(format string, args ...any) string {
	if strings.Contains(format, "%") {
		return newline(fmt.Sprintf(format, args...))
	}

	var b strings.Builder
	b.WriteString(format)
	for i := 0; i < len(args); i += 2 {
		b.WriteString(" ")
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, "%v", args[i])
		}
	}
	return newline(b.String())
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type slogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger adapts a slog.Logger to Logger. Calls using printf verbs are
// formatted, otherwise args are passed through as key/value attributes.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

func (s slogLogger) log(level slog.Level, format string, args ...any) {
	if strings.Contains(format, "%") {
		s.logger.Log(context.Background(), level, fmt.Sprintf(format, args...))
		return
	}
	s.logger.Log(context.Background(), level, format, args...)
}

func (s slogLogger) Debug(format string, args ...any) { s.log(slog.LevelDebug, format, args...) }
func (s slogLogger) Info(format string, args ...any)  { s.log(slog.LevelInfo, format, args...) }
func (s slogLogger) Warn(format string, args ...any)  { s.log(slog.LevelWarn, format, args...) }
func (s slogLogger) Error(format string, args ...any) { s.log(slog.LevelError, format, args...) }

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
