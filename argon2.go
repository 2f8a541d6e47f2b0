package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams controls the argon2id key derivation
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2idParams follows the OWASP baseline for argon2id
func DefaultArgon2idParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2idHasher produces PHC encoded argon2id digests:
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
type Argon2idHasher struct {
	params Argon2idParams
}

func NewArgon2idHasher(params Argon2idParams) *Argon2idHasher {
	def := DefaultArgon2idParams()
	if params.MemoryKiB == 0 {
		params.MemoryKiB = def.MemoryKiB
	}
	if params.Iterations == 0 {
		params.Iterations = def.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	return &Argon2idHasher{params: params}
}

func (h *Argon2idHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Iterations,
		h.params.MemoryKiB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

func (h *Argon2idHasher) ComparePasswordAndHash(password, hash string) error {
	params, salt, expected, err := decodeArgon2id(hash)
	if err != nil {
		return err
	}

	// refuse digests that would cost far more than our own settings
	if !argon2WithinBounds(params, h.params) {
		return withSource(ErrUnsupportedHash, nil, map[string]any{"algorithm": "argon2id", "reason": "parameters out of bounds"})
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)), // #nosec G115 -- bounded by argon2WithinBounds
	)

	if subtle.ConstantTimeCompare(key, expected) == 1 {
		return nil
	}
	return ErrMismatchedHashAndPassword
}

func (h *Argon2idHasher) Verify(password, hash string) bool {
	return h.ComparePasswordAndHash(password, hash) == nil
}

func (h *Argon2idHasher) Supports(hash string) bool {
	return strings.HasPrefix(hash, "$argon2id$")
}

func argon2WithinBounds(got, limits Argon2idParams) bool {
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if got.Parallelism > limits.Parallelism*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

func decodeArgon2id(encoded string) (Argon2idParams, []byte, []byte, error) {
	invalid := func(reason string) (Argon2idParams, []byte, []byte, error) {
		return Argon2idParams{}, nil, nil, withSource(ErrUnsupportedHash, nil, map[string]any{
			"algorithm": "argon2id",
			"reason":    reason,
		})
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return invalid("unexpected layout")
	}

	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return invalid("unsupported version")
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return invalid("bad parameters")
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return invalid("bad parameters")
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return invalid("bad salt encoding")
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return invalid("bad key encoding")
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, nil
}
