package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }
func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

func TestAccounts_InsertNormalizesAndDefaults(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	account := &auth.Account{ID: "u-1", Email: "  Reader@BookNook.io ", Name: "Reader", IsActive: true}
	out, err := repo.Accounts().Insert(ctx, account)
	require.NoError(t, err)

	assert.Equal(t, "reader@booknook.io", out.Email)
	assert.False(t, out.CreatedAt.IsZero())
	assert.False(t, out.UpdatedAt.IsZero())
	assert.Equal(t, out.CreatedAt.Format(auth.JoinedDateLayout), out.JoinedDate)

	found, err := repo.Accounts().FindByEmail(ctx, "READER@booknook.io")
	require.NoError(t, err)
	assert.Equal(t, "u-1", found.ID)
	assert.False(t, found.HasPassword())
}

func TestAccounts_InsertConflicts(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	seedAccount(t, repo, "u-1", "one@x.com", "")

	tests := []struct {
		name  string
		id    string
		email string
	}{
		{name: "same id", id: "u-1", email: "other@x.com"},
		{name: "same email", id: "u-2", email: "one@x.com"},
		{name: "same email different case", id: "u-3", email: "ONE@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Accounts().Insert(context.Background(), auth.NewAccount(tt.id, tt.email, "dup", testNow))
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrAccountConflict)
		})
	}
}

func TestAccounts_FindNotFound(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Accounts().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)

	_, err = repo.Accounts().FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestAccounts_Update(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()
	account := seedAccount(t, repo, "u-1", "one@x.com", "")

	t.Run("writes only the given columns", func(t *testing.T) {
		account.Name = "Renamed"
		account.Bio = "not written"
		_, err := repo.Accounts().Update(ctx, account, "name")
		require.NoError(t, err)

		found, err := repo.Accounts().FindByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", found.Name)
		assert.Empty(t, found.Bio)
		assert.True(t, found.UpdatedAt.After(testNow))
	})

	t.Run("missing account", func(t *testing.T) {
		ghost := auth.NewAccount("ghost", "ghost@x.com", "Ghost", testNow)
		_, err := repo.Accounts().Update(ctx, ghost, "name")
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("email collision", func(t *testing.T) {
		seedAccount(t, repo, "u-2", "two@x.com", "")
		account.Email = "two@x.com"
		_, err := repo.Accounts().Update(ctx, account, "email")
		assert.ErrorIs(t, err, auth.ErrAccountConflict)
	})
}

func TestAccounts_List(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		i := i
		seedAccount(t, repo, fmt.Sprintf("u-%d", i), fmt.Sprintf("reader%d@x.com", i), "", func(a *auth.Account) {
			a.CreatedAt = testNow.Add(minutes(i))
			if i == 0 {
				a.IsAdmin = true
			}
			if i == 4 {
				a.IsActive = false
			}
		})
	}
	seedAccount(t, repo, "u-alice", "alice@x.com", "", func(a *auth.Account) {
		a.Name = "Alice Liddell"
		a.CreatedAt = testNow.Add(-time.Hour)
	})

	tests := []struct {
		name    string
		filter  auth.AccountFilter
		wantIDs []string
		total   int
	}{
		{
			name:    "newest first",
			filter:  auth.AccountFilter{Limit: 3},
			wantIDs: []string{"u-4", "u-3", "u-2"},
			total:   6,
		},
		{
			name:    "skip",
			filter:  auth.AccountFilter{Skip: 4, Limit: 10},
			wantIDs: []string{"u-0", "u-alice"},
			total:   6,
		},
		{
			name:    "search name case insensitive",
			filter:  auth.AccountFilter{Search: "LIDDELL"},
			wantIDs: []string{"u-alice"},
			total:   1,
		},
		{
			name:    "search email",
			filter:  auth.AccountFilter{Search: "reader3"},
			wantIDs: []string{"u-3"},
			total:   1,
		},
		{
			name:    "admins",
			filter:  auth.AccountFilter{IsAdmin: boolPtr(true)},
			wantIDs: []string{"u-0"},
			total:   1,
		},
		{
			name:    "inactive",
			filter:  auth.AccountFilter{IsActive: boolPtr(false)},
			wantIDs: []string{"u-4"},
			total:   1,
		},
		{
			name:    "search and flag combined",
			filter:  auth.AccountFilter{Search: "reader", IsActive: boolPtr(true), Limit: 2},
			wantIDs: []string{"u-3", "u-2"},
			total:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.Accounts().List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)

			ids := make([]string, 0, len(items))
			for _, a := range items {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestAuditLogs_RecordAndList(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	_, err := repo.AuditLogs().Record(ctx, &auth.AuditLog{UserID: "admin-001"})
	require.Error(t, err)

	entries := []*auth.AuditLog{
		{UserID: "admin-001", Action: auth.AuditActionToggleAdmin, ResourceType: "user", ResourceID: "u-1", CreatedAt: testNow},
		{UserID: "admin-001", Action: auth.AuditActionUpdateUser, ResourceType: "user", ResourceID: "u-2", CreatedAt: testNow.Add(time.Minute),
			Details: map[string]any{"new_values": map[string]any{"name": "Bob"}}},
		{UserID: "admin-002", Action: auth.AuditActionAdminLogin, CreatedAt: testNow.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		out, err := repo.AuditLogs().Record(ctx, e)
		require.NoError(t, err)
		assert.Regexp(t, `^log-[0-9a-f]{12}$`, out.ID)
	}

	tests := []struct {
		name    string
		filter  auth.AuditFilter
		actions []string
	}{
		{name: "all newest first", actions: []string{auth.AuditActionAdminLogin, auth.AuditActionUpdateUser, auth.AuditActionToggleAdmin}},
		{name: "by action", filter: auth.AuditFilter{Action: auth.AuditActionUpdateUser}, actions: []string{auth.AuditActionUpdateUser}},
		{name: "by resource type", filter: auth.AuditFilter{ResourceType: "user"}, actions: []string{auth.AuditActionUpdateUser, auth.AuditActionToggleAdmin}},
		{name: "by user", filter: auth.AuditFilter{UserID: "admin-002"}, actions: []string{auth.AuditActionAdminLogin}},
		{name: "page", filter: auth.AuditFilter{Skip: 1, Limit: 1}, actions: []string{auth.AuditActionUpdateUser}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, _, err := repo.AuditLogs().List(ctx, tt.filter)
			require.NoError(t, err)

			actions := make([]string, 0, len(items))
			for _, e := range items {
				actions = append(actions, e.Action)
			}
			assert.Equal(t, tt.actions, actions)
		})
	}

	items, _, err := repo.AuditLogs().List(ctx, auth.AuditFilter{Action: auth.AuditActionUpdateUser})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"name": "Bob"}, items[0].Details["new_values"])
}

func TestAuditSink(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()
	sink := auth.NewAuditSink(repo.AuditLogs(), nil)

	actor := auth.ActorRef{ID: "admin-001", Email: "admin@booknook.io", Type: auth.ActorTypeAdmin}

	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
		EventType:  auth.ActivityEventAccountAdminToggled,
		Actor:      actor,
		UserID:     "u-1",
		IPAddress:  "10.0.0.1",
		Metadata:   map[string]any{"is_admin": true},
		OccurredAt: testNow,
	}))

	// routine logins are not audited
	require.NoError(t, sink.Record(ctx, auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		Actor:     actor,
		UserID:    "admin-001",
	}))

	items, total, err := repo.AuditLogs().List(ctx, auth.AuditFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	entry := items[0]
	assert.Equal(t, auth.AuditActionToggleAdmin, entry.Action)
	assert.Equal(t, "admin-001", entry.UserID)
	assert.Equal(t, "admin@booknook.io", entry.UserEmail)
	assert.Equal(t, "user", entry.ResourceType)
	assert.Equal(t, "u-1", entry.ResourceID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, true, entry.Details["is_admin"])
	assert.True(t, entry.CreatedAt.Equal(testNow))
}

func TestRepositoryManager_RunInTxRollsBack(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Accounts().InsertTx(ctx, tx, auth.NewAccount("u-tx", "tx@x.com", "Tx", testNow))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Accounts().FindByID(ctx, "u-tx")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}
