package auth

import (
	"context"

	"github.com/uptrace/bun"
)

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}
var sessionCtxKey = &contextKey{"db_session"}
var ipCtxKey = &contextKey{"client_ip"}

type contextKey struct {
	name string
}

// WithAccount sets the resolved Account in the given context
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey, account)
}

// AccountFromContext finds the resolved account in the context.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// WithClaims sets the decoded token claims in the given context
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the decoded token claims
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}

// WithSessionDB scopes a database handle to the request held by ctx
func WithSessionDB(ctx context.Context, db bun.IDB) context.Context {
	return context.WithValue(ctx, sessionCtxKey, db)
}

// SessionDB returns the request scoped handle or fallback when none is set
func SessionDB(ctx context.Context, fallback bun.IDB) bun.IDB {
	if db, ok := ctx.Value(sessionCtxKey).(bun.IDB); ok && db != nil {
		return db
	}
	return fallback
}

// WithClientIP records the caller address for activity events
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipCtxKey, ip)
}

func ipFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ipCtxKey).(string)
	return ip
}
