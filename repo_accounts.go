package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Page sizes. User listings default to a smaller page than audit logs.
const (
	DefaultUserListLimit = 50
	DefaultListLimit     = 100
	MaxListLimit         = 100
)

// AccountFilter narrows account listings
type AccountFilter struct {
	Skip     int
	Limit    int
	Search   string
	IsAdmin  *bool
	IsActive *bool
}

// AccountStore is the subset of Accounts the identity resolver needs
type AccountStore interface {
	FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error)
	InsertTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
}

// Accounts persists Account records. Methods without the Tx suffix run on
// the request scoped session when the context carries one.
type Accounts interface {
	AccountStore
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	Insert(ctx context.Context, account *Account) (*Account, error)
	Update(ctx context.Context, account *Account, columns ...string) (*Account, error)
	UpdateTx(ctx context.Context, tx bun.IDB, account *Account, columns ...string) (*Account, error)
	List(ctx context.Context, filter AccountFilter) ([]*Account, int, error)
	ListTx(ctx context.Context, tx bun.IDB, filter AccountFilter) ([]*Account, int, error)
}

type accounts struct {
	db  *bun.DB
	now func() time.Time
}

func NewAccountsRepository(db *bun.DB) Accounts {
	return &accounts{db: db, now: time.Now}
}

func (a *accounts) conn(ctx context.Context) bun.IDB {
	return SessionDB(ctx, a.db)
}

func (a *accounts) FindByID(ctx context.Context, id string) (*Account, error) {
	return a.FindByIDTx(ctx, a.conn(ctx), id)
}

func (a *accounts) FindByIDTx(ctx context.Context, tx bun.IDB, id string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapFindError(err, "failed to find account by id")
	}
	return record, nil
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.conn(ctx), email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapFindError(err, "failed to find account by email")
	}
	return record, nil
}

func (a *accounts) Insert(ctx context.Context, account *Account) (*Account, error) {
	return a.InsertTx(ctx, a.conn(ctx), account)
}

// InsertTx inserts account. A unique violation on id or email returns
// ErrAccountConflict.
func (a *accounts) InsertTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}

	now := a.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
	if account.JoinedDate == "" {
		account.JoinedDate = account.CreatedAt.Format(JoinedDateLayout)
	}
	account.Email = NormalizeEmail(account.Email)

	if _, err := tx.NewInsert().Model(account).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrAccountConflict
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert account")
	}

	return account, nil
}

func (a *accounts) Update(ctx context.Context, account *Account, columns ...string) (*Account, error) {
	return a.UpdateTx(ctx, a.conn(ctx), account, columns...)
}

// UpdateTx writes the given columns, or every column when none are given.
// updated_at is always refreshed.
func (a *accounts) UpdateTx(ctx context.Context, tx bun.IDB, account *Account, columns ...string) (*Account, error) {
	if account == nil {
		return nil, goerrors.New("account is required", goerrors.CategoryBadInput)
	}

	account.UpdatedAt = a.now()

	q := tx.NewUpdate().Model(account).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrAccountConflict
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrAccountNotFound
	}

	return account, nil
}

func (a *accounts) List(ctx context.Context, filter AccountFilter) ([]*Account, int, error) {
	return a.ListTx(ctx, a.conn(ctx), filter)
}

// ListTx returns a page of accounts, newest first, and the total matching
// the filter.
func (a *accounts) ListTx(ctx context.Context, tx bun.IDB, filter AccountFilter) ([]*Account, int, error) {
	skip, limit := normalizePage(filter.Skip, filter.Limit, DefaultUserListLimit)

	records := []*Account{}
	q := tx.NewSelect().Model(&records)

	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(?TableAlias.name) LIKE ?", pattern).
				WhereOr("LOWER(?TableAlias.email) LIKE ?", pattern)
		})
	}
	if filter.IsAdmin != nil {
		q = q.Where("?TableAlias.is_admin = ?", *filter.IsAdmin)
	}
	if filter.IsActive != nil {
		q = q.Where("?TableAlias.is_active = ?", *filter.IsActive)
	}

	total, err := q.
		Order("created_at DESC", "id ASC").
		Offset(skip).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list accounts")
	}

	return records, total, nil
}

func mapFindError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func normalizePage(skip, limit, defaultLimit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return skip, limit
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
