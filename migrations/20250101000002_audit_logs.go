package migrations

import (
	"context"
	"fmt"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250101000002, down_20250101000002)
}

func up_20250101000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating audit_logs table...")
	if _, err := db.NewCreateTable().
		Model((*auth.AuditLog)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	indexes := map[string]string{
		"idx_audit_logs_created_at": "created_at",
		"idx_audit_logs_action":     "action",
		"idx_audit_logs_user_id":    "user_id",
	}
	for name, column := range indexes {
		if _, err := db.NewCreateIndex().
			Model((*auth.AuditLog)(nil)).
			Index(name).
			Column(column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
	}
	fmt.Println(" OK")
	return nil
}

func down_20250101000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping audit_logs table...")
	if _, err := db.NewDropTable().
		Model((*auth.AuditLog)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop audit_logs table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
