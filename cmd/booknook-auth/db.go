package main

import (
	"fmt"

	"github.com/goliatone/go-booknook-auth/internal/dbx"
	"github.com/goliatone/go-booknook-auth/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the migration tracking tables",
	RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
		if err := migrator.Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		logger.Info("migration tables initialized")
		return nil
	}),
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: withDB(func(cmd *cobra.Command, db *bun.DB) error {
		group, err := migrations.Migrate(cmd.Context(), db)
		if err != nil {
			return err
		}
		if group.ID == 0 {
			logger.Info("no new migrations to apply")
		} else {
			logger.Info("applied migrations", "group", group.ID)
		}
		return nil
	}),
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last migration group",
	RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
		ctx := cmd.Context()
		if err := migrator.Lock(ctx); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			if err := migrator.Unlock(ctx); err != nil {
				logger.Warn("failed to release migration lock", "error", err)
			}
		}()

		group, err := migrator.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if group.ID == 0 {
			logger.Info("no migrations to roll back")
		} else {
			logger.Info("rolled back migrations", "group", group.ID)
		}
		return nil
	}),
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: withMigrator(func(cmd *cobra.Command, migrator *migrate.Migrator) error {
		ms, err := migrator.MigrationsWithStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, m := range ms {
			status := "pending"
			if m.GroupID > 0 {
				status = fmt.Sprintf("applied (group %d)", m.GroupID)
			}
			fmt.Fprintf(out, "  %s: %s\n", m.Name, status)
		}
		return nil
	}),
}

func init() {
	dbCmd.AddCommand(dbInitCmd, dbMigrateCmd, dbRollbackCmd, dbStatusCmd)
}

func withDB(run func(cmd *cobra.Command, db *bun.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := dbx.NewDB(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbx.Close(db)
		return run(cmd, db)
	}
}

func withMigrator(run func(cmd *cobra.Command, migrator *migrate.Migrator) error) func(*cobra.Command, []string) error {
	return withDB(func(cmd *cobra.Command, db *bun.DB) error {
		return run(cmd, migrations.NewMigrator(db))
	})
}
