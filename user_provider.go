package auth

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// CredentialStore is the lookup AccountProvider needs
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, account *Account, columns ...string) (*Account, error)
}

type rehasher interface {
	NeedsRehash(hash string) bool
}

// AccountProvider verifies email and password credentials
type AccountProvider struct {
	store  CredentialStore
	hasher PasswordHasher
	logger Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store CredentialStore, hasher PasswordHasher) *AccountProvider {
	return &AccountProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *AccountProvider) WithLogger(l Logger) *AccountProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyCredentials will find the account, compare the password and check
// the account is active. Unknown emails, accounts without a password and
// wrong passwords all fail with ErrMismatchedHashAndPassword.
func (u *AccountProvider) VerifyCredentials(ctx context.Context, email, password string) (*Account, error) {
	account, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if !account.HasPassword() {
		return nil, ErrMismatchedHashAndPassword
	}

	if !u.hasher.Verify(password, *account.PasswordHash) {
		return nil, ErrMismatchedHashAndPassword
	}

	if !account.IsActive {
		return nil, ErrDeactivated
	}

	u.upgradeHash(ctx, account, password)

	return account, nil
}

// upgradeHash re-hashes the password with the primary algorithm when the
// stored digest was produced by another one. Failures are only logged.
func (u *AccountProvider) upgradeHash(ctx context.Context, account *Account, password string) {
	r, ok := u.hasher.(rehasher)
	if !ok || !r.NeedsRehash(*account.PasswordHash) {
		return
	}

	hash, err := u.hasher.HashPassword(password)
	if err != nil {
		u.logger.Warn("failed to rehash password", "id", account.ID, "error", err)
		return
	}

	account.SetPassword(hash)
	if _, err := u.store.Update(ctx, account, "password_hash"); err != nil {
		u.logger.Warn("failed to store rehashed password", "id", account.ID, "error", err)
	}
}
