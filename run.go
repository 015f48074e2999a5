package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talvikko/sheetsync/internal/config"
	"github.com/talvikko/sheetsync/internal/health"
	"github.com/talvikko/sheetsync/internal/mirror"
)

// newRunCmd builds the run command: the long-lived sync pipeline plus the
// liveness endpoint, stopped together on SIGINT/SIGTERM.
func newRunCmd() *cobra.Command {
	var noSnapshot bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := buildLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := mirror.NewOrchestrator(
				mirror.OrchestratorConfig{
					Snapshot:             cfg.Sync.Snapshot && !noSnapshot,
					StreamRestartDelay:   config.Duration(cfg.Sync.StreamRestartDelay),
					PipelineRestartDelay: config.Duration(cfg.Sync.PipelineRestartDelay),
					Logger:               logger,
				},
				func(ctx context.Context) (*mirror.Session, error) {
					return mirror.NewSession(ctx, cfg, logger)
				},
			)

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return orch.Run(ctx)
			})

			g.Go(func() error {
				return health.Run(ctx, cfg.Server.ListenAddr, logger)
			})

			if err := g.Wait(); err != nil {
				logger.Error("run failed", slog.String("error", err.Error()))
				return err
			}

			logger.Info("shutdown complete")

			return nil
		},
	}

	cmd.Flags().BoolVar(&noSnapshot, "no-snapshot", false, "skip the full snapshot export at startup")

	return cmd
}
