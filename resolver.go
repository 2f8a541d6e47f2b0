package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Resolution outcomes reported to a ResolutionObserver
const (
	ResolutionAnonymous       = "anonymous"
	ResolutionResolved        = "resolved"
	ResolutionProvisioned     = "provisioned"
	ResolutionRecovered       = "conflict_recovered"
	ResolutionUnauthenticated = "unauthenticated"
	ResolutionDeactivated     = "deactivated"
)

type ResolutionObserver interface {
	ResolutionObserved(outcome string)
}

type noopResolutionObserver struct{}

func (noopResolutionObserver) ResolutionObserved(string) {}

// IdentityResolver maps a bearer token to a persisted Account. The first
// time a valid subject is seen an Account is provisioned for it.
type IdentityResolver struct {
	tokens   SessionDecoder
	store    AccountStore
	db       bun.IDB
	sink     ActivitySink
	observer ResolutionObserver
	logger   Logger
	now      func() time.Time
}

type ResolverOption func(*IdentityResolver)

func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *IdentityResolver) {
		r.logger = normalizeLogger(logger)
	}
}

func WithResolverActivitySink(sink ActivitySink) ResolverOption {
	return func(r *IdentityResolver) {
		r.sink = normalizeActivitySink(sink)
	}
}

func WithResolutionObserver(observer ResolutionObserver) ResolverOption {
	return func(r *IdentityResolver) {
		if observer == nil {
			observer = noopResolutionObserver{}
		}
		r.observer = observer
	}
}

func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *IdentityResolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewIdentityResolver wires a resolver. db is used unless the request
// context carries a session handle.
func NewIdentityResolver(tokens SessionDecoder, store AccountStore, db bun.IDB, opts ...ResolverOption) *IdentityResolver {
	r := &IdentityResolver{
		tokens:   tokens,
		store:    store,
		db:       db,
		sink:     noopActivitySink{},
		observer: noopResolutionObserver{},
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the active Account behind token. It fails with
// ErrUnauthenticated when there is no usable identity and with
// ErrDeactivated when the account exists but is inactive.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		r.observer.ResolutionObserved(ResolutionUnauthenticated)
		return nil, ErrUnauthenticated
	}

	claims, err := r.tokens.Decode(token)
	if err != nil {
		r.logger.Debug("session token rejected", "error", err)
		r.observer.ResolutionObserved(ResolutionUnauthenticated)
		return nil, ErrUnauthenticated
	}

	return r.ResolveClaims(ctx, claims)
}

// ResolveClaims runs the lookup and provisioning steps for already
// decoded claims.
func (r *IdentityResolver) ResolveClaims(ctx context.Context, claims *SessionClaims) (*Account, error) {
	if claims == nil || claims.Subject == "" {
		r.observer.ResolutionObserved(ResolutionUnauthenticated)
		return nil, ErrUnauthenticated
	}

	db := SessionDB(ctx, r.db)
	outcome := ResolutionResolved

	account, err := r.store.FindByIDTx(ctx, db, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotFound):
		account, outcome, err = r.provision(ctx, db, claims)
		if err != nil {
			r.observer.ResolutionObserved(ResolutionUnauthenticated)
			return nil, ErrUnauthenticated
		}
	default:
		r.logger.Error("failed to load account", "sub", claims.Subject, "error", err)
		r.observer.ResolutionObserved(ResolutionUnauthenticated)
		return nil, ErrUnauthenticated
	}

	if !account.IsActive {
		r.observer.ResolutionObserved(ResolutionDeactivated)
		return nil, ErrDeactivated
	}

	r.observer.ResolutionObserved(outcome)
	return account, nil
}

// ResolveOptional is Resolve for endpoints that also serve anonymous
// callers. A missing or unusable identity yields (nil, nil).
func (r *IdentityResolver) ResolveOptional(ctx context.Context, token string) (*Account, error) {
	if strings.TrimSpace(token) == "" {
		r.observer.ResolutionObserved(ResolutionAnonymous)
		return nil, nil
	}

	account, err := r.Resolve(ctx, token)
	if err != nil {
		r.logger.Debug("optional identity treated as anonymous", "error", err)
		return nil, nil
	}
	return account, nil
}

func (r *IdentityResolver) provision(ctx context.Context, db bun.IDB, claims *SessionClaims) (*Account, string, error) {
	email := NormalizeEmail(claims.Email)
	if email == "" {
		r.logger.Warn("cannot provision account without email claim", "sub", claims.Subject)
		return nil, "", ErrUnauthenticated
	}

	local := NameFromEmail(email)
	candidate := NewAccount(claims.Subject, email, local, r.now())
	candidate.Nickname = local

	var created *Account
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = r.store.InsertTx(ctx, tx, candidate)
		return err
	})

	if err == nil {
		r.logger.Info("provisioned account", "sub", created.ID, "email", created.Email)
		recordActivity(ctx, r.sink, r.logger, ActivityEvent{
			EventType:  ActivityEventAccountProvisioned,
			Actor:      ActorRef{ID: created.ID, Email: created.Email, Type: ActorTypeSystem},
			UserID:     created.ID,
			Metadata:   map[string]any{"issuer": claims.Issuer},
			OccurredAt: r.now(),
		})
		return created, ResolutionProvisioned, nil
	}

	if errors.Is(err, ErrAccountConflict) {
		// another request provisioned the same subject first
		existing, findErr := r.store.FindByIDTx(ctx, db, claims.Subject)
		if findErr == nil {
			return existing, ResolutionRecovered, nil
		}
		r.logger.Warn("provisioning conflict without matching subject", "sub", claims.Subject, "email", email, "error", findErr)
		return nil, "", ErrUnauthenticated
	}

	r.logger.Error("failed to provision account", "sub", claims.Subject, "error", err)
	return nil, "", ErrUnauthenticated
}
