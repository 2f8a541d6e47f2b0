package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// AuditFilter narrows audit log listings
type AuditFilter struct {
	Skip         int
	Limit        int
	Action       string
	ResourceType string
	UserID       string
}

// AuditLogs persists AuditLog records
type AuditLogs interface {
	Record(ctx context.Context, entry *AuditLog) (*AuditLog, error)
	RecordTx(ctx context.Context, tx bun.IDB, entry *AuditLog) (*AuditLog, error)
	List(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error)
	ListTx(ctx context.Context, tx bun.IDB, filter AuditFilter) ([]*AuditLog, int, error)
}

type auditLogs struct {
	db  *bun.DB
	now func() time.Time
}

func NewAuditLogsRepository(db *bun.DB) AuditLogs {
	return &auditLogs{db: db, now: time.Now}
}

func (a *auditLogs) Record(ctx context.Context, entry *AuditLog) (*AuditLog, error) {
	return a.RecordTx(ctx, SessionDB(ctx, a.db), entry)
}

func (a *auditLogs) RecordTx(ctx context.Context, tx bun.IDB, entry *AuditLog) (*AuditLog, error) {
	if entry == nil || entry.Action == "" {
		return nil, goerrors.New("audit entry requires an action", goerrors.CategoryBadInput)
	}
	if entry.ID == "" {
		entry.ID = newAuditID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}

	if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert audit log")
	}
	return entry, nil
}

func (a *auditLogs) List(ctx context.Context, filter AuditFilter) ([]*AuditLog, int, error) {
	return a.ListTx(ctx, SessionDB(ctx, a.db), filter)
}

// ListTx returns a page of audit entries, newest first
func (a *auditLogs) ListTx(ctx context.Context, tx bun.IDB, filter AuditFilter) ([]*AuditLog, int, error) {
	skip, limit := normalizePage(filter.Skip, filter.Limit, DefaultListLimit)

	records := []*AuditLog{}
	q := tx.NewSelect().Model(&records)
	if filter.Action != "" {
		q = q.Where("?TableAlias.action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		q = q.Where("?TableAlias.resource_type = ?", filter.ResourceType)
	}
	if filter.UserID != "" {
		q = q.Where("?TableAlias.user_id = ?", filter.UserID)
	}

	total, err := q.
		Order("created_at DESC").
		Offset(skip).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list audit logs")
	}
	return records, total, nil
}

// AuditSink persists activity events into audit_logs
type AuditSink struct {
	repo    AuditLogs
	actions map[ActivityEventType]string
}

// DefaultAuditActions maps activity events to audit actions. Routine
// logins are not audited.
func DefaultAuditActions() map[ActivityEventType]string {
	return map[ActivityEventType]string{
		ActivityEventAccountUpdated:      AuditActionUpdateUser,
		ActivityEventAccountAdminToggled: AuditActionToggleAdmin,
		ActivityEventAccountActiveToggle: AuditActionToggleActive,
		ActivityEventAccountProvisioned:  AuditActionProvision,
		ActivityEventAdminLogin:          AuditActionAdminLogin,
	}
}

func NewAuditSink(repo AuditLogs, actions map[ActivityEventType]string) *AuditSink {
	if actions == nil {
		actions = DefaultAuditActions()
	}
	return &AuditSink{repo: repo, actions: actions}
}

func (s *AuditSink) Record(ctx context.Context, event ActivityEvent) error {
	action, ok := s.actions[event.EventType]
	if !ok {
		return nil
	}

	entry := &AuditLog{
		UserID:    event.Actor.ID,
		UserEmail: event.Actor.Email,
		Action:    action,
		IPAddress: event.IPAddress,
		Details:   event.Metadata,
		CreatedAt: event.OccurredAt,
	}
	if event.UserID != "" {
		entry.ResourceType = "user"
		entry.ResourceID = event.UserID
	}

	_, err := s.repo.Record(ctx, entry)
	return err
}
