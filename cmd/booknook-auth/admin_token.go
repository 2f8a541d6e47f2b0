package main

import (
	"fmt"
	"time"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/goliatone/go-booknook-auth/internal/dbx"
	"github.com/spf13/cobra"
)

var (
	adminTokenEmail string
	adminTokenTTL   time.Duration
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Issue an admin token for an existing admin account",
	Long: `Looks up an active admin account by email and prints a signed admin token.
The account must already have the admin flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := dbx.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbx.Close(db)

		account, err := auth.NewAccountsRepository(db).FindByEmail(ctx, adminTokenEmail)
		if err != nil {
			return err
		}

		tokens, err := auth.NewTokenService(cfg, auth.WithTokenLogger(logger))
		if err != nil {
			return err
		}

		token, expiresAt, err := auth.MintAdminToken(tokens, account, auth.AdminTokenOptions{TTL: adminTokenTTL})
		if err != nil {
			return err
		}

		logger.Info("issued admin token", "email", account.Email, "expires_at", expiresAt.UTC().Format(time.RFC3339))
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	adminTokenCmd.Flags().StringVar(&adminTokenEmail, "email", "", "admin account email")
	adminTokenCmd.Flags().DurationVar(&adminTokenTTL, "ttl", 0, "token lifetime (defaults to admin_token_expiration_minutes)")
	_ = adminTokenCmd.MarkFlagRequired("email")
}
