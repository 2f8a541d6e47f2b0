package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	WithSession(ctx context.Context, f func(ctx context.Context, db bun.IDB) error) error
	DB() *bun.DB
	Accounts() Accounts
	AuditLogs() AuditLogs
}

type mngr struct {
	db        *bun.DB
	accounts  Accounts
	auditLogs AuditLogs
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:        db,
		accounts:  NewAccountsRepository(db),
		auditLogs: NewAuditLogsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.auditLogs == nil {
		return errors.New("repository auditLogs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f in a transaction on the request session when ctx carries
// one, otherwise on the pool.
func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return SessionDB(ctx, m.db).RunInTx(ctx, opts, f)
	}
}

// WithSession pins a single connection for the duration of f and releases
// it on every exit path, including panics and errors. Repositories called
// with the derived context use that connection.
func (m mngr) WithSession(ctx context.Context, f func(ctx context.Context, db bun.IDB) error) error {
	if db, ok := ctx.Value(sessionCtxKey).(bun.IDB); ok && db != nil {
		return f(ctx, db)
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to acquire database session")
	}
	defer conn.Close()

	return f(WithSessionDB(ctx, conn), conn)
}

func (m mngr) DB() *bun.DB {
	return m.db
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) AuditLogs() AuditLogs {
	return m.auditLogs
}
