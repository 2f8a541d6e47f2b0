package auth

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords with bcrypt. Digests use the "$2a$", "$2b$"
// or "$2y$" prefixes and embed their own salt and cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to the package
// default when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", goerrors.Wrap(err, goerrors.CategoryValidation, "password exceeds 72 bytes").
				WithCode(goerrors.CodeBadRequest)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(out), nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return withSource(ErrUnsupportedHash, err, map[string]any{"algorithm": "bcrypt"})
	}
	return nil
}

// Verify reports whether password matches hash. Malformed digests are a
// mismatch, never an error.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return h.ComparePasswordAndHash(password, hash) == nil
}

// Supports reports whether the digest looks like a bcrypt hash
func (h *BcryptHasher) Supports(hash string) bool {
	return isBcryptHash(hash)
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

var defaultHasher = NewBcryptHasher(0)

// HashPassword will generate a password hash with the default bcrypt hasher
func HashPassword(password string) (string, error) {
	return defaultHasher.HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return defaultHasher.ComparePasswordAndHash(password, hash)
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
