// Package cli implements the boxctl subcommands.
package cli

import (
	"fmt"

	"github.com/boxwatch/boxwatch-api/internal/app"
	"github.com/boxwatch/boxwatch-api/pkg/config"
	"github.com/boxwatch/boxwatch-api/pkg/logger"
	"github.com/spf13/cobra"
)

// openApp loads configuration and connects the backends
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: "text"})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log.SetOutput(cmd.ErrOrStderr())

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return a, nil
}
