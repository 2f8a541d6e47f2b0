package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of BookNook session and admin tokens. Tokens
// issued by an external identity provider decode into the same shape; any
// extra claims they carry are ignored.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

// UserID returns the subject, which is the account id
func (c *SessionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Admin reports whether the token was minted as an admin token
func (c *SessionClaims) Admin() bool {
	return c.IsAdmin
}

// Expires returns the expiration time, zero if the claim is absent
func (c *SessionClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issued at time, zero if the claim is absent
func (c *SessionClaims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
