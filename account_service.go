package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// AccountService applies profile and moderation changes to accounts
type AccountService struct {
	repo   RepositoryManager
	sink   ActivitySink
	logger Logger
}

func NewAccountService(repo RepositoryManager) *AccountService {
	return &AccountService{
		repo:   repo,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.sink = normalizeActivitySink(sink)
	return s
}

func (s *AccountService) WithLogger(logger Logger) *AccountService {
	s.logger = normalizeLogger(logger)
	return s
}

// UpdateSelf applies patch to the caller's own account. Privilege fields
// are dropped unless the caller is an admin, and an admin can not revoke
// their own admin flag or deactivate themselves.
func (s *AccountService) UpdateSelf(ctx context.Context, actor *Account, patch AccountPatch) (*Account, error) {
	if !actor.IsAdmin {
		patch = patch.ProfileOnly()
	}
	if err := checkSelfPatch(actor, actor.ID, patch); err != nil {
		return nil, err
	}
	account, _, err := s.patch(ctx, actor.ID, patch)
	return account, err
}

// AdminUpdate applies patch to any account on behalf of an admin and
// records it, even when nothing changed.
func (s *AccountService) AdminUpdate(ctx context.Context, actor *Account, id string, patch AccountPatch) (*Account, error) {
	if err := checkSelfPatch(actor, id, patch); err != nil {
		return nil, err
	}

	account, changes, err := s.patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	// every admin patch is audited, a no-op one with empty value maps
	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventAccountUpdated,
		Actor:     ActorFromAccount(actor),
		UserID:    account.ID,
		IPAddress: ipFromContext(ctx),
		Metadata:  ChangesToDetails(changes),
	})

	return account, nil
}

// ToggleAdmin flips is_admin on another account
func (s *AccountService) ToggleAdmin(ctx context.Context, actor *Account, id string) (*Account, error) {
	if actor.ID == id {
		return nil, selfModificationError("Cannot modify your own admin status")
	}

	account, err := s.toggle(ctx, id, func(a *Account) AccountPatch {
		next := !a.IsAdmin
		return AccountPatch{IsAdmin: &next}
	})
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventAccountAdminToggled,
		Actor:     ActorFromAccount(actor),
		UserID:    account.ID,
		IPAddress: ipFromContext(ctx),
		Metadata:  map[string]any{"is_admin": account.IsAdmin},
	})

	return account, nil
}

// ToggleActive flips is_active on another account
func (s *AccountService) ToggleActive(ctx context.Context, actor *Account, id string) (*Account, error) {
	if actor.ID == id {
		return nil, selfModificationError("Cannot deactivate your own account")
	}

	account, err := s.toggle(ctx, id, func(a *Account) AccountPatch {
		next := !a.IsActive
		return AccountPatch{IsActive: &next}
	})
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, s.sink, s.logger, ActivityEvent{
		EventType: ActivityEventAccountActiveToggle,
		Actor:     ActorFromAccount(actor),
		UserID:    account.ID,
		IPAddress: ipFromContext(ctx),
		Metadata:  map[string]any{"is_active": account.IsActive},
	})

	return account, nil
}

func (s *AccountService) toggle(ctx context.Context, id string, build func(*Account) AccountPatch) (*Account, error) {
	var out *Account
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := s.repo.Accounts().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		columns, _ := build(account).Apply(account)
		if out, err = s.repo.Accounts().UpdateTx(ctx, tx, account, columns...); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, unwrapRich(err, "failed to update account")
	}
	return out, nil
}

func (s *AccountService) patch(ctx context.Context, id string, patch AccountPatch) (*Account, map[string]Change, error) {
	var out *Account
	var changes map[string]Change

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := s.repo.Accounts().FindByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		var columns []string
		columns, changes = patch.Apply(account)
		if len(columns) == 0 {
			out = account
			return nil
		}

		out, err = s.repo.Accounts().UpdateTx(ctx, tx, account, columns...)
		return err
	})
	if err != nil {
		return nil, nil, unwrapRich(err, "failed to update account")
	}
	return out, changes, nil
}

func checkSelfPatch(actor *Account, id string, patch AccountPatch) error {
	if actor.ID != id {
		return nil
	}
	if patch.IsAdmin != nil && !*patch.IsAdmin && actor.IsAdmin {
		return selfModificationError("Cannot remove your own admin status")
	}
	if patch.IsActive != nil && !*patch.IsActive {
		return selfModificationError("Cannot deactivate your own account")
	}
	return nil
}

func selfModificationError(msg string) error {
	clone := ErrSelfModification.Clone()
	if clone == nil {
		return ErrSelfModification
	}
	clone.Message = msg
	return clone
}

// unwrapRich returns rich errors as they are and wraps anything else
func unwrapRich(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
