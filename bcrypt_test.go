package auth_test

import (
	"strings"
	"testing"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  auth.ErrNoEmptyString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NoError(t, auth.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := auth.NewBcryptHasher(4)
	assert.Equal(t, 4, h.Cost())

	hash, err := h.HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, h.Supports(hash))

	tests := []struct {
		name     string
		password string
		hash     string
		want     error
	}{
		{"matching password", "secret123", hash, nil},
		{"wrong password", "secret124", hash, auth.ErrMismatchedHashAndPassword},
		{"empty password", "", hash, auth.ErrMismatchedHashAndPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.want == nil {
				assert.NoError(t, err)
				assert.True(t, h.Verify(tt.password, tt.hash))
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, h.Verify(tt.password, tt.hash))
		})
	}

	t.Run("malformed digest", func(t *testing.T) {
		err := h.ComparePasswordAndHash("secret123", "not-a-hash")
		require.Error(t, err)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeUnsupportedHash))
		assert.False(t, h.Verify("secret123", "not-a-hash"))
	})

	t.Run("password over 72 bytes", func(t *testing.T) {
		_, err := h.HashPassword(strings.Repeat("a", 73))
		assert.Error(t, err)
	})

	t.Run("out of range cost falls back", func(t *testing.T) {
		assert.GreaterOrEqual(t, auth.NewBcryptHasher(99).Cost(), 4)
		assert.GreaterOrEqual(t, auth.NewBcryptHasher(0).Cost(), 4)
	})
}

func TestRandomPasswordHash(t *testing.T) {
	a := auth.RandomPasswordHash()
	b := auth.RandomPasswordHash()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$2"))
}
