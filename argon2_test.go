package auth_test

import (
	"strings"
	"testing"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastArgon2() *auth.Argon2idHasher {
	return auth.NewArgon2idHasher(auth.Argon2idParams{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
}

func TestArgon2idHasher(t *testing.T) {
	h := fastArgon2()

	hash, err := h.HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
	assert.True(t, h.Supports(hash))

	assert.True(t, h.Verify("secret123", hash))
	assert.False(t, h.Verify("secret124", hash))
	assert.ErrorIs(t, h.ComparePasswordAndHash("wrong", hash), auth.ErrMismatchedHashAndPassword)

	again, err := h.HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")

	_, err = h.HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestArgon2idHasher_MalformedDigests(t *testing.T) {
	h := fastArgon2()

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"bcrypt digest", "$2a$04$abcdefghijklmnopqrstuu"},
		{"wrong version", "$argon2id$v=18$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5a2V5a2V5a2V5a2V5a2V5"},
		{"excessive memory", "$argon2id$v=19$m=4194304,t=1,p=1$c2FsdHNhbHRzYWx0$a2V5a2V5a2V5a2V5a2V5a2V5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.ComparePasswordAndHash("secret123", tt.hash)
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, auth.TextCodeUnsupportedHash))
		})
	}
}

func TestMultiHasher(t *testing.T) {
	bc := auth.NewBcryptHasher(4)
	ar := fastArgon2()

	bcHash, err := bc.HashPassword("secret123")
	require.NoError(t, err)
	arHash, err := ar.HashPassword("secret123")
	require.NoError(t, err)

	m := auth.NewMultiHasher(ar, bc)

	primary, err := m.HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(primary, "$argon2id$"))

	assert.True(t, m.Verify("secret123", bcHash))
	assert.True(t, m.Verify("secret123", arHash))
	assert.False(t, m.Verify("nope", bcHash))
	assert.False(t, m.Verify("nope", arHash))

	assert.True(t, m.NeedsRehash(bcHash))
	assert.False(t, m.NeedsRehash(arHash))

	assert.ErrorIs(t, m.ComparePasswordAndHash("secret123", "plaintext"), auth.ErrUnsupportedHash)
}

func TestNewPasswordHasher(t *testing.T) {
	cfg := newTestConfig()

	hash, err := auth.NewPasswordHasher(cfg).HashPassword("secret123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	cfg.hashAlgorithm = auth.HashAlgorithmArgon2id
	m := auth.NewPasswordHasher(cfg)
	assert.True(t, m.Verify("secret123", hash), "bcrypt digests still verify")
	assert.True(t, m.NeedsRehash(hash))
}
