package auth

import "strings"

const (
	HashAlgorithmBcrypt   = "bcrypt"
	HashAlgorithmArgon2id = "argon2id"
)

// FormatHasher is a PasswordHasher that can tell whether it owns a digest.
type FormatHasher interface {
	PasswordHasher
	Supports(hash string) bool
}

// MultiHasher hashes with its primary hasher and verifies against whichever
// hasher recognizes the digest.
type MultiHasher struct {
	primary FormatHasher
	hashers []FormatHasher
}

func NewMultiHasher(primary FormatHasher, others ...FormatHasher) *MultiHasher {
	return &MultiHasher{
		primary: primary,
		hashers: append([]FormatHasher{primary}, others...),
	}
}

// NewPasswordHasher builds the hasher configured by hash_algorithm. Both
// bcrypt and argon2id digests verify regardless of the selected algorithm.
func NewPasswordHasher(cfg Config) *MultiHasher {
	bc := NewBcryptHasher(cfg.GetBcryptCost())
	ar := NewArgon2idHasher(DefaultArgon2idParams())

	if strings.EqualFold(cfg.GetHashAlgorithm(), HashAlgorithmArgon2id) {
		return NewMultiHasher(ar, bc)
	}
	return NewMultiHasher(bc, ar)
}

func (m *MultiHasher) HashPassword(password string) (string, error) {
	return m.primary.HashPassword(password)
}

func (m *MultiHasher) ComparePasswordAndHash(password, hash string) error {
	for _, h := range m.hashers {
		if h.Supports(hash) {
			return h.ComparePasswordAndHash(password, hash)
		}
	}
	return ErrUnsupportedHash
}

func (m *MultiHasher) Verify(password, hash string) bool {
	return m.ComparePasswordAndHash(password, hash) == nil
}

// NeedsRehash reports whether hash was produced by a hasher other than the
// primary one.
func (m *MultiHasher) NeedsRehash(hash string) bool {
	return !m.primary.Supports(hash)
}
