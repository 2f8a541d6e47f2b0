package main

import (
	"fmt"
	"log/slog"
	"os"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/goliatone/go-booknook-auth/config"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

const skipConfigAnnotation = "skip-config"

var (
	cfg        *config.Config
	logger     auth.Logger
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "booknook-auth",
	Short: "BookNook authentication service",
	Long: `booknook-auth serves registration, login and account moderation for
BookNook and resolves bearer tokens to accounts for the rest of the backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfigAnnotation] == "true" {
			logger = newLogger(false)
			return nil
		}

		var err error
		cfg, err = config.Load(config.LoadOptions{
			File:     configFile,
			Required: cmd.Flags().Changed("config"),
			Flags:    cmd.Flags(),
		})
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		logger = newLogger(cfg.Debug)
		if cfg.Debug {
			logger.Debug("configuration: %s", print.MaybePrettyJSON(cfg))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "booknook.yaml", "YAML config file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd, dbCmd, adminTokenCmd, hashPasswordCmd)
}

func newLogger(debug bool) auth.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return auth.NewSlogLogger(slog.New(handler))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
