package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-booknook-auth/internal/dbx"
	"github.com/goliatone/go-booknook-auth/internal/server"
	"github.com/goliatone/go-booknook-auth/migrations"
	"github.com/spf13/cobra"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Connects to the database, applies pending migrations, creates the default admin and serves the auth API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := dbx.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbx.Close(db)

		if autoMigrate {
			group, err := migrations.Migrate(ctx, db)
			if err != nil {
				return err
			}
			if group.ID != 0 {
				logger.Info("applied migrations", "group", group.ID)
			}
		}

		srv, err := server.New(cfg, db, server.WithLogger(logger))
		if err != nil {
			return err
		}

		if err := srv.Bootstrap(ctx); err != nil {
			return fmt.Errorf("failed to bootstrap default admin: %w", err)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Listen()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply pending migrations on start")
}
