package auth

import (
	"strings"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// JoinedDateLayout renders joined_date as "Jan 2006"
const JoinedDateLayout = "Jan 2006"

// Account is the persisted BookNook user
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               string    `bun:"id,pk" json:"id"`
	Email            string    `bun:"email,notnull,unique" json:"email"`
	Name             string    `bun:"name,notnull" json:"name"`
	Nickname         string    `bun:"nickname" json:"nickname,omitempty"`
	PasswordHash     *string   `bun:"password_hash" json:"-"`
	AvatarURL        string    `bun:"avatar_url" json:"avatar_url"`
	Bio              string    `bun:"bio" json:"bio"`
	IsActive         bool      `bun:"is_active,notnull" json:"is_active"`
	IsAdmin          bool      `bun:"is_admin,notnull" json:"is_admin"`
	ProfileCompleted bool      `bun:"profile_completed,notnull" json:"profile_completed"`
	JoinedDate       string    `bun:"joined_date" json:"joined_date"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// HasPassword reports whether the account can log in with a password.
// Accounts provisioned from an external token have none.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// SetPassword stores a password digest
func (a *Account) SetPassword(hash string) *Account {
	a.PasswordHash = &hash
	return a
}

// Audit log actions
const (
	AuditActionUpdateUser   = "update_user"
	AuditActionToggleAdmin  = "toggle_admin"
	AuditActionToggleActive = "toggle_active"
	AuditActionProvision    = "provision_user"
	AuditActionAdminLogin   = "admin_login"
	AuditActionLogin        = "login"
	AuditActionLoginFailed  = "login_failed"
	AuditActionRegister     = "register"
)

// AuditLog records administrative and security relevant actions
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:aud"`
	ID            string         `bun:"id,pk" json:"id"`
	UserID        string         `bun:"user_id,nullzero" json:"user_id,omitempty"`
	UserEmail     string         `bun:"user_email,nullzero" json:"user_email,omitempty"`
	Action        string         `bun:"action,notnull" json:"action"`
	ResourceType  string         `bun:"resource_type,nullzero" json:"resource_type,omitempty"`
	ResourceID    string         `bun:"resource_id,nullzero" json:"resource_id,omitempty"`
	Details       map[string]any `bun:"details,type:json" json:"details,omitempty"`
	IPAddress     string         `bun:"ip_address,nullzero" json:"ip_address,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// NewAccount prepares an active, non admin account with the bookkeeping
// fields set.
func NewAccount(id, email, name string, now time.Time) *Account {
	return &Account{
		ID:         id,
		Email:      NormalizeEmail(email),
		Name:       name,
		IsActive:   true,
		JoinedDate: now.Format(JoinedDateLayout),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NormalizeEmail trims and lower cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameFromEmail derives a display name from the email local part
func NameFromEmail(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	if email == "" {
		return "User"
	}
	return email
}

// NewAccountID returns a "u-" prefixed id. With useHashid the id is derived
// from the email so the same address always maps to the same id.
func NewAccountID(email string, useHashid bool) string {
	if useHashid {
		if id, err := hashid.NewUUID(NormalizeEmail(email)); err == nil {
			return "u-" + shortHex(id)
		}
	}
	return "u-" + shortHex(uuid.New())
}

func newAuditID() string {
	return "log-" + shortHex(uuid.New())
}

func shortHex(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}
