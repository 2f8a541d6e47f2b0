package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DefaultAdminID is the id given to the bootstrap admin account
const DefaultAdminID = "admin-001"

// DefaultAdmin describes the bootstrap admin account
type DefaultAdmin struct {
	Email    string
	Password string
	Name     string
}

// EnsureDefaultAdmin creates the bootstrap admin account when no account
// uses its email. Existing accounts are never modified. It reports whether
// an account was created.
func EnsureDefaultAdmin(ctx context.Context, repo RepositoryManager, hasher PasswordHasher, admin DefaultAdmin, logger Logger) (bool, error) {
	logger = normalizeLogger(logger)

	if admin.Email == "" || admin.Password == "" {
		logger.Debug("default admin not configured, skipping bootstrap")
		return false, nil
	}
	if admin.Name == "" {
		admin.Name = "Admin"
	}

	created := false
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Accounts().FindByEmailTx(ctx, tx, admin.Email)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}

		hash, err := hasher.HashPassword(admin.Password)
		if err != nil {
			return err
		}

		account := NewAccount(DefaultAdminID, admin.Email, admin.Name, time.Now())
		account.SetPassword(hash)
		account.IsAdmin = true
		account.Bio = "BookNook administrator."

		if _, err := repo.Accounts().InsertTx(ctx, tx, account); err != nil {
			if errors.Is(err, ErrAccountConflict) {
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to bootstrap default admin")
	}

	if created {
		logger.Info("default admin account created", "email", NormalizeEmail(admin.Email))
	}
	return created, nil
}
