// Package cmd provides the CLI commands for yakgwan.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yakgwan-ai/yakgwan/internal/config"
	"github.com/yakgwan-ai/yakgwan/internal/logging"
	"github.com/yakgwan-ai/yakgwan/pkg/version"
)

var (
	cfgPath   string
	debugMode bool
)

// NewRootCmd creates the root command for the yakgwan CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yakgwan",
		Short: "Insurance policy question answering over hybrid retrieval",
		Long: `Yakgwan answers questions about Korean insurance policy documents.

It combines pgvector similarity search with Postgres full-text search,
expands truncated clauses with their neighbors until the context is
complete, and validates every generated answer before returning it.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("yakgwan version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file path (default: yakgwan.yaml in the working directory)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSimilarCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the effective configuration from file, environment,
// and persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging configures slog for CLI use: file output when configured,
// stderr kept clean for command output.
func setupLogging(cfg *config.Config) (*slog.Logger, func()) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.WriteToStderr = false
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Fall back to the default logger rather than failing the command
		return slog.Default(), func() {}
	}
	slog.SetDefault(logger)
	return logger, cleanup
}
