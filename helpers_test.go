package auth_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/goliatone/go-booknook-auth/internal/dbx"
	"github.com/goliatone/go-booknook-auth/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const testSigningKey = "booknook-test-signing-key-0123456789"

type testConfig struct {
	signingKey      string
	signingMethod   string
	issuer          string
	audience        []string
	ttl             int
	adminTTL        int
	hashAlgorithm   string
	bcryptCost      int
	extSecret       string
	jwksURL         string
	extIssuer       string
	allowUnverified bool
	useHashid       bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:    testSigningKey,
		signingMethod: "HS256",
		ttl:           30,
		adminTTL:      30,
		hashAlgorithm: auth.HashAlgorithmBcrypt,
		bcryptCost:    4,
	}
}

func (c testConfig) GetSigningKey() string                  { return c.signingKey }
func (c testConfig) GetSigningMethod() string               { return c.signingMethod }
func (c testConfig) GetIssuer() string                      { return c.issuer }
func (c testConfig) GetAudience() []string                  { return c.audience }
func (c testConfig) GetTokenExpiration() int                { return c.ttl }
func (c testConfig) GetAdminTokenExpiration() int           { return c.adminTTL }
func (c testConfig) GetHashAlgorithm() string               { return c.hashAlgorithm }
func (c testConfig) GetBcryptCost() int                     { return c.bcryptCost }
func (c testConfig) GetExternalHMACSecret() string          { return c.extSecret }
func (c testConfig) GetExternalJWKSURL() string             { return c.jwksURL }
func (c testConfig) GetExternalIssuer() string              { return c.extIssuer }
func (c testConfig) GetAllowUnverifiedExternalTokens() bool { return c.allowUnverified }
func (c testConfig) GetUseHashid() bool                     { return c.useHashid }

var (
	dbCounter atomic.Int64
	testNow   = time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)
)

// newTestDB opens a migrated in-memory sqlite database private to the test
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:authtest_%d?mode=memory&cache=shared", dbCounter.Add(1))

	ctx := context.Background()
	db, err := dbx.NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.Migrate(ctx, db)
	require.NoError(t, err)
	return db
}

func newTestTokens(t *testing.T, cfg *testConfig, opts ...auth.TokenOption) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(cfg, opts...)
	require.NoError(t, err)
	return ts
}

// seedAccount inserts an account with a bcrypt digest of password when
// password is not empty.
func seedAccount(t *testing.T, repo auth.RepositoryManager, id, email, password string, mutate ...func(*auth.Account)) *auth.Account {
	t.Helper()

	account := auth.NewAccount(id, email, auth.NameFromEmail(email), testNow)
	if password != "" {
		hash, err := auth.NewBcryptHasher(4).HashPassword(password)
		require.NoError(t, err)
		account.SetPassword(hash)
	}
	for _, fn := range mutate {
		fn(account)
	}

	out, err := repo.Accounts().Insert(context.Background(), account)
	require.NoError(t, err)
	return out
}

func asAdmin(a *auth.Account)    { a.IsAdmin = true }
func asInactive(a *auth.Account) { a.IsActive = false }

// recordingSink keeps every activity event it receives
type recordingSink struct {
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []auth.ActivityEventType {
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type countingObserver struct {
	outcomes map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: map[string]int{}}
}

func (c *countingObserver) ResolutionObserved(outcome string) { c.outcomes[outcome]++ }
func (c *countingObserver) GuardObserved(guard, outcome string) {
	c.outcomes[guard+":"+outcome]++
}
