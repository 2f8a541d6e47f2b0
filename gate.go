package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/uptrace/bun"
)

// Guard names reported to a GuardObserver
const (
	GuardUser       = "user"
	GuardAdmin      = "admin"
	GuardAdminToken = "admin_token"
	GuardOptional   = "optional"
)

type GuardObserver interface {
	GuardObserved(guard, outcome string)
}

type noopGuardObserver struct{}

func (noopGuardObserver) GuardObserved(string, string) {}

// RequireUser passes an active account through and maps resolution errors
// to ErrDeactivated or ErrUnauthenticated.
func RequireUser(account *Account, err error) (*Account, error) {
	if err != nil {
		if errors.Is(err, ErrDeactivated) {
			return nil, ErrDeactivated
		}
		return nil, ErrUnauthenticated
	}
	if account == nil {
		return nil, ErrUnauthenticated
	}
	if !account.IsActive {
		return nil, ErrDeactivated
	}
	return account, nil
}

// RequireAdmin is RequireUser followed by an admin check
func RequireAdmin(account *Account, err error) (*Account, error) {
	account, err = RequireUser(account, err)
	if err != nil {
		return nil, err
	}
	if !account.IsAdmin {
		return nil, ErrForbidden
	}
	return account, nil
}

// Gate exposes the guards over raw bearer tokens
type Gate struct {
	resolver *IdentityResolver
	admin    AdminDecoder
	store    AccountStore
	db       bun.IDB
	observer GuardObserver
	logger   Logger
}

type GateOption func(*Gate)

func WithGateObserver(observer GuardObserver) GateOption {
	return func(g *Gate) {
		if observer == nil {
			observer = noopGuardObserver{}
		}
		g.observer = observer
	}
}

func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		g.logger = normalizeLogger(logger)
	}
}

// NewGate builds a Gate. Admin token lookups share the resolver's store.
func NewGate(resolver *IdentityResolver, admin AdminDecoder, opts ...GateOption) *Gate {
	g := &Gate{
		resolver: resolver,
		admin:    admin,
		store:    resolver.store,
		db:       resolver.db,
		observer: noopGuardObserver{},
		logger:   defLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) RequireUser(ctx context.Context, token string) (*Account, error) {
	account, err := RequireUser(g.resolver.Resolve(ctx, token))
	g.observe(GuardUser, err)
	return account, err
}

func (g *Gate) RequireAdmin(ctx context.Context, token string) (*Account, error) {
	account, err := RequireAdmin(g.resolver.Resolve(ctx, token))
	g.observe(GuardAdmin, err)
	return account, err
}

// OptionalUser returns the active account behind token, or nil for
// anonymous callers.
func (g *Gate) OptionalUser(ctx context.Context, token string) (*Account, error) {
	account, err := g.resolver.ResolveOptional(ctx, token)
	g.observe(GuardOptional, err)
	return account, err
}

// RequireAdminToken authorizes admin panel calls. It does not use the
// session path: the token must be a strictly verified admin token and the
// account must already exist, be an admin and be active.
func (g *Gate) RequireAdminToken(ctx context.Context, token string) (*Account, error) {
	account, err := g.requireAdminToken(ctx, token)
	g.observe(GuardAdminToken, err)
	return account, err
}

func (g *Gate) requireAdminToken(ctx context.Context, token string) (*Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.admin.DecodeAdmin(token)
	if err != nil {
		g.logger.Debug("admin token rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	account, err := g.store.FindByIDTx(ctx, SessionDB(ctx, g.db), claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			g.logger.Error("failed to load admin account", "sub", claims.Subject, "error", err)
		}
		return nil, ErrUnauthenticated
	}

	if !account.IsAdmin {
		return nil, ErrForbidden
	}
	if !account.IsActive {
		return nil, ErrDeactivated
	}

	return account, nil
}

func (g *Gate) observe(guard string, err error) {
	g.observer.GuardObserved(guard, guardOutcome(err))
}

func guardOutcome(err error) string {
	switch {
	case err == nil:
		return "allowed"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrDeactivated):
		return "deactivated"
	default:
		return "unauthenticated"
	}
}
