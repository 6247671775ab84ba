package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lifelog/internal/collector"
	"lifelog/internal/logging"
	"lifelog/internal/notifications"
	"lifelog/internal/player"
	"lifelog/internal/services/spotify"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var autoplay bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the rolling music collection loop",
		Long: "Polls the listening history on an interval and appends new plays to the music dataset. " +
			"Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			history, err := ctx.historyClient()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalogClient()
			if err != nil {
				return err
			}

			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if autoplay {
				startPlayback(signalCtx, ctx, catalog, logger)
			}

			notifier := notifications.NewService(cfg)
			c, err := collector.New(cfg, history, catalog, notifier, store, logger)
			if err != nil {
				return err
			}
			return c.Run(signalCtx)
		},
	}

	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "Open the Spotify app and start the target playlist first")
	return cmd
}

// startPlayback is best-effort: the collection loop matters more than the
// autoplay convenience, so failures are reported and ignored.
func startPlayback(ctx context.Context, cmdCtx *commandContext, catalog *spotify.Client, logger *slog.Logger) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return
	}
	if cfg.Spotify.TargetPlaylist == "" {
		logger.Warn("autoplay requested but spotify.target_playlist is not set")
		return
	}
	launcher, err := player.New(catalog, cfg.Spotify.TargetPlaylist, logger)
	if err != nil {
		logger.Warn("autoplay unavailable", logging.Error(err))
		return
	}
	if err := launcher.Start(ctx); err != nil {
		logger.Warn("autoplay failed, press play manually", logging.Error(err))
	}
}
