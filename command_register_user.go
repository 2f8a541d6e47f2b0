package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const defaultBio = "New member of the BookNook community."

type RegisterAccountMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 0)),
	)
}

// RegisterAccountHandler creates password accounts
type RegisterAccountHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
	sink   ActivitySink
	logger Logger
}

func NewRegisterAccountHandler(repo RepositoryManager, hasher PasswordHasher) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:   repo,
		hasher: hasher,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.sink = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	_, err := h.Register(ctx, event)
	return err
}

// Register validates event and creates the account. A taken email fails
// with ErrEmailRegistered.
func (h *RegisterAccountHandler) Register(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
	}

	if err := event.Validate(); err != nil {
		return nil, validationError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	name := strings.TrimSpace(event.Name)
	account := NewAccount(NewAccountID(event.Email, event.UseHashid), event.Email, name, now)
	account.SetPassword(hash)
	account.AvatarURL = avatarURL(name)
	account.Bio = defaultBio

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Accounts().FindByEmailTx(ctx, tx, account.Email); err == nil {
			return ErrEmailRegistered
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}

		if _, err := h.repo.Accounts().InsertTx(ctx, tx, account); err != nil {
			if errors.Is(err, ErrAccountConflict) {
				return ErrEmailRegistered
			}
			return err
		}
		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	recordActivity(ctx, h.sink, h.logger, ActivityEvent{
		EventType:  ActivityEventAccountRegistered,
		Actor:      ActorFromAccount(account),
		UserID:     account.ID,
		OccurredAt: now,
	})

	return account, nil
}

func avatarURL(name string) string {
	v := url.Values{}
	v.Set("name", name)
	v.Set("background", "random")
	return "https://ui-avatars.com/api/?" + v.Encode()
}
