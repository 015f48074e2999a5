package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talvikko/sheetsync/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagQuiet      bool
)

const defaultConfigPath = "sheetsync.toml"

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sheetsync",
		Short:   "Mirror a document collection into a spreadsheet and CRM",
		Long:    "sheetsync tails a document collection's change stream and keeps a spreadsheet and a CRM profile sink in step with it.",
		Version: version,
		// Silence Cobra's default error/usage printing — errors are logged
		// by the commands themselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// loadConfig resolves the effective configuration: defaults, then the config
// file (--config flag or SHEETSYNC_CONFIG or ./sheetsync.toml), then
// environment overrides.
func loadConfig() (*config.Config, error) {
	path := defaultConfigPath
	if v := os.Getenv(config.EnvConfig); v != "" {
		path = v
	}

	if flagConfigPath != "" {
		path = flagConfigPath
	}

	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return cfg, nil
}

// buildLogger creates an slog.Logger from the config log level and the
// --verbose/--quiet flags. CLI flags win over the config file.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
