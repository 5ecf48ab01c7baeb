package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vistaar-ai/vistaar/internal/app"
	"github.com/vistaar-ai/vistaar/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// checkRequiredEnv verifies the model API key is present before doing
// any expensive initialization.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return errors.New("GEMINI_API_KEY environment variable is not set")
	}
	return nil
}

func runServe(parent context.Context) error {
	if err := checkRequiredEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	a.Logger.Info("starting vistaar", "version", Version, "environment", cfg.Environment)
	return a.Serve(ctx)
}
