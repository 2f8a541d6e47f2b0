package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-booknook-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type resolverFixture struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	tokens   *auth.TokenService
	resolver *auth.IdentityResolver
	sink     *recordingSink
	observer *countingObserver
}

func newResolverFixture(t *testing.T, cfg *testConfig, store func(auth.Accounts) auth.AccountStore) *resolverFixture {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	tokens := newTestTokens(t, cfg)

	var accountStore auth.AccountStore = repo.Accounts()
	if store != nil {
		accountStore = store(repo.Accounts())
	}

	f := &resolverFixture{
		db:       db,
		repo:     repo,
		tokens:   tokens,
		sink:     &recordingSink{},
		observer: newCountingObserver(),
	}
	f.resolver = auth.NewIdentityResolver(tokens, accountStore, db,
		auth.WithResolverActivitySink(f.sink),
		auth.WithResolutionObserver(f.observer),
		auth.WithResolverClock(fixedClock(testNow)),
	)
	return f
}

func (f *resolverFixture) token(t *testing.T, sub, email string) string {
	t.Helper()
	token, _, err := f.tokens.Encode(auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		Email:            email,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *resolverFixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.db.NewSelect().Model((*auth.Account)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestIdentityResolver_ProvisionsOnFirstSight(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	ctx := context.Background()
	token := f.token(t, "u-abc", "abc@x.com")

	first, err := f.resolver.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u-abc", first.ID)
	assert.Equal(t, "abc@x.com", first.Email)
	assert.Equal(t, "abc", first.Name)
	assert.Equal(t, "abc", first.Nickname)
	assert.True(t, first.IsActive)
	assert.False(t, first.IsAdmin)
	assert.False(t, first.HasPassword())
	assert.Equal(t, "Mar 2024", first.JoinedDate)

	second, err := f.resolver.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Email, second.Email)

	assert.Equal(t, 1, f.count(t))
	assert.Equal(t, 1, f.observer.outcomes[auth.ResolutionProvisioned])
	assert.Equal(t, 1, f.observer.outcomes[auth.ResolutionResolved])
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventAccountProvisioned}, f.sink.types())
}

func TestIdentityResolver_ExistingAccount(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	seeded := seedAccount(t, f.repo, "u-1", "reader@booknook.com", "secret123")

	account, err := f.resolver.Resolve(context.Background(), f.token(t, "u-1", "ignored@example.com"))
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, account.ID)
	assert.Equal(t, "reader@booknook.com", account.Email, "stored email wins over claim")
	assert.Empty(t, f.sink.events)
}

func TestIdentityResolver_Deactivated(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	seedAccount(t, f.repo, "u-1", "reader@booknook.com", "secret123", asInactive)

	_, err := f.resolver.Resolve(context.Background(), f.token(t, "u-1", "reader@booknook.com"))
	assert.ErrorIs(t, err, auth.ErrDeactivated)
	assert.NotErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, 1, f.observer.outcomes[auth.ResolutionDeactivated])
}

func TestIdentityResolver_Unauthenticated(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	ctx := context.Background()

	expired, _, err := f.tokens.Encode(auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-abc"},
		Email:            "abc@x.com",
	}, 0)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"garbage", "abc.def.ghi"},
		{"expired", expired},
		{"no email to provision with", f.token(t, "u-new", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(ctx, tt.token)
			assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		})
	}

	assert.Equal(t, 0, f.count(t))
}

func TestIdentityResolver_EmailTakenBySomeoneElse(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	seedAccount(t, f.repo, "u-1", "abc@x.com", "secret123")

	_, err := f.resolver.Resolve(context.Background(), f.token(t, "u-2", "abc@x.com"))
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, 1, f.count(t))
}

// staleStore reports the first lookup as missing, as if another request
// inserted the row right after this one looked.
type staleStore struct {
	auth.AccountStore
	mu     sync.Mutex
	missed bool
}

func (s *staleStore) FindByIDTx(ctx context.Context, db bun.IDB, id string) (*auth.Account, error) {
	s.mu.Lock()
	first := !s.missed
	s.missed = true
	s.mu.Unlock()

	if first {
		return nil, auth.ErrAccountNotFound
	}
	return s.AccountStore.FindByIDTx(ctx, db, id)
}

func TestIdentityResolver_RecoversFromProvisioningRace(t *testing.T) {
	var store *staleStore
	f := newResolverFixture(t, newTestConfig(), func(accounts auth.Accounts) auth.AccountStore {
		store = &staleStore{AccountStore: accounts}
		return store
	})
	winner := seedAccount(t, f.repo, "u-abc", "abc@x.com", "")

	account, err := f.resolver.Resolve(context.Background(), f.token(t, "u-abc", "abc@x.com"))
	require.NoError(t, err)
	assert.Equal(t, winner.ID, account.ID)
	assert.Equal(t, 1, f.count(t))
	assert.Equal(t, 1, f.observer.outcomes[auth.ResolutionRecovered])
	assert.Empty(t, f.sink.events)
}

func TestIdentityResolver_ConcurrentFirstSight(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	token := f.token(t, "u-abc", "abc@x.com")

	const workers = 8
	var wg sync.WaitGroup
	ids := make([]string, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			account, err := f.resolver.Resolve(context.Background(), token)
			errs[i] = err
			if account != nil {
				ids[i] = account.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "u-abc", ids[i])
	}
	assert.Equal(t, 1, f.count(t))
}

func TestIdentityResolver_ResolveOptional(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	ctx := context.Background()
	seedAccount(t, f.repo, "u-off", "off@x.com", "", asInactive)

	account, err := f.resolver.ResolveOptional(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, account)
	assert.Equal(t, 1, f.observer.outcomes[auth.ResolutionAnonymous])

	account, err = f.resolver.ResolveOptional(ctx, "junk")
	assert.NoError(t, err)
	assert.Nil(t, account)

	account, err = f.resolver.ResolveOptional(ctx, f.token(t, "u-off", "off@x.com"))
	assert.NoError(t, err)
	assert.Nil(t, account)

	account, err = f.resolver.ResolveOptional(ctx, f.token(t, "u-abc", "abc@x.com"))
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "u-abc", account.ID)
}

func TestIdentityResolver_UsesRequestSession(t *testing.T) {
	f := newResolverFixture(t, newTestConfig(), nil)
	token := f.token(t, "u-abc", "abc@x.com")

	err := f.repo.WithSession(context.Background(), func(ctx context.Context, db bun.IDB) error {
		_, isConn := db.(bun.Conn)
		assert.True(t, isConn)

		account, err := f.resolver.Resolve(ctx, token)
		if err != nil {
			return err
		}
		assert.Equal(t, "u-abc", account.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(t))
}

func TestIdentityResolver_UnverifiedFallbackProvisions(t *testing.T) {
	cfg := newTestConfig()
	cfg.allowUnverified = true
	f := newResolverFixture(t, cfg, nil)

	foreign := unsignedToken(t, jwt.MapClaims{
		"sub":      "legacy-7",
		"email":    "legacy@example.com",
		"is_admin": true,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	account, err := f.resolver.Resolve(context.Background(), foreign)
	require.NoError(t, err)
	assert.Equal(t, "legacy-7", account.ID)
	assert.False(t, account.IsAdmin)
}
