package migrations

import (
	"context"
	"fmt"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20250101000001, down_20250101000001)
}

func up_20250101000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating accounts table...")
	if _, err := db.NewCreateTable().
		Model((*auth.Account)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*auth.Account)(nil)).
		Index("idx_accounts_created_at").
		Column("created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create accounts created_at index: %w", err)
	}
	fmt.Println(" OK")
	return nil
}

func down_20250101000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping accounts table...")
	if _, err := db.NewDropTable().
		Model((*auth.Account)(nil)).
		IfExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to drop accounts table: %w", err)
	}
	fmt.Println(" OK")
	return nil
}
