package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
)

// ContextAccountKey is the router context store key holding the resolved
// *Account
const ContextAccountKey = "account"

const defaultTokenLookup = "header:" + router.HeaderAuthorization

// TokenExtractor pulls a raw token out of a request. An empty string means
// no token was presented.
type TokenExtractor func(c router.Context) string

// GetExtractors builds extractors from a lookup definition like
// "header:Authorization,query:access_token,cookie:jwt".
func GetExtractors(tokenLookup string, authScheme string) []TokenExtractor {
	if authScheme == "" {
		authScheme = "Bearer"
	}

	extractors := make([]TokenExtractor, 0)
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, tokenFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, func(c router.Context) string { return c.Query(name, "") })
		case "cookie":
			extractors = append(extractors, tokenFromCookie(name))
		}
	}
	return extractors
}

func tokenFromHeader(header, authScheme string) TokenExtractor {
	return func(c router.Context) string {
		a := c.Header(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l+1:])
		}
		return ""
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) string {
		raw := c.Header(fiber.HeaderCookie)
		if raw == "" {
			return ""
		}
		cookies, err := http.ParseCookie(raw)
		if err != nil {
			return ""
		}
		for _, cookie := range cookies {
			if cookie.Name == name {
				return cookie.Value
			}
		}
		return ""
	}
}

// BearerToken returns the token from "Authorization: Bearer <token>"
func BearerToken(c router.Context) string {
	return tokenFromHeader(router.HeaderAuthorization, "Bearer")(c)
}

// SessionOpener scopes a database session to a unit of work
type SessionOpener interface {
	WithSession(ctx context.Context, f func(ctx context.Context, db bun.IDB) error) error
}

// Guards adapts the Gate to router middleware
type Guards struct {
	gate       *Gate
	extractors []TokenExtractor
}

type GuardsOption func(*Guards)

// WithTokenLookup overrides where guards look for the bearer token
func WithTokenLookup(tokenLookup, authScheme string) GuardsOption {
	return func(g *Guards) {
		g.extractors = GetExtractors(tokenLookup, authScheme)
	}
}

func NewGuards(gate *Gate, opts ...GuardsOption) *Guards {
	g := &Guards{
		gate:       gate,
		extractors: GetExtractors(defaultTokenLookup, "Bearer"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guards) token(c router.Context) string {
	for _, extract := range g.extractors {
		if token := extract(c); token != "" {
			return token
		}
	}
	return ""
}

// UserRequired admits active accounts
func (g *Guards) UserRequired() router.MiddlewareFunc {
	return g.guard(g.gate.RequireUser)
}

// AdminRequired admits active admins holding a session token
func (g *Guards) AdminRequired() router.MiddlewareFunc {
	return g.guard(g.gate.RequireAdmin)
}

// AdminTokenRequired admits active admins holding an admin token
func (g *Guards) AdminTokenRequired() router.MiddlewareFunc {
	return g.guard(g.gate.RequireAdminToken)
}

// UserOptional resolves the account when one is presented and lets
// anonymous callers through.
func (g *Guards) UserOptional() router.MiddlewareFunc {
	return g.guard(g.gate.OptionalUser)
}

// guard calls next directly. Calling c.Next() from a route middleware would
// run the rest of the chain a second time.
func (g *Guards) guard(check func(ctx context.Context, token string) (*Account, error)) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			account, err := check(c.Context(), g.token(c))
			if err != nil {
				return err
			}
			if account != nil {
				c.Set(ContextAccountKey, account)
				c.SetContext(WithAccount(c.Context(), account))
			}
			return next(c)
		}
	}
}

// SessionScope pins a database session for the rest of the handler chain
// and tags the request context with the caller address. It runs on the
// underlying fiber app since the router context does not expose the peer
// address.
func SessionScope(opener SessionOpener) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := WithClientIP(c.UserContext(), c.IP())
		return opener.WithSession(ctx, func(ctx context.Context, _ bun.IDB) error {
			c.SetUserContext(ctx)
			return c.Next()
		})
	}
}

// CurrentAccount returns the account stored by a guard
func CurrentAccount(c router.Context) (*Account, bool) {
	if account := router.GetContextValue[*Account](c, ContextAccountKey, nil); account != nil {
		return account, true
	}
	return AccountFromContext(c.Context())
}
