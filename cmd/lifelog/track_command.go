package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lifelog/internal/notifications"
	"lifelog/internal/tracker"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Run a foreground-window observation session",
		Long: "Samples the frontmost application on an interval and appends each observation to " +
			"the activity dataset. The session ends after the configured duration or on Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if hours > 0 {
				cfg.Tracker.SessionDurationHours = hours
			}

			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			notifier := notifications.NewService(cfg)
			t, err := tracker.New(cfg, notifier, store, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tracking the foreground window for %d hours. Saving to %s\n",
				cfg.Tracker.SessionDurationHours, cfg.ActivityLogPath())

			result, err := t.Run(signalCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Interrupted {
				fmt.Fprintf(out, "Stopped after %s with %d samples\n", result.Elapsed.Round(timeRound), result.Samples)
			} else {
				fmt.Fprintf(out, "Session complete: %d samples over %s\n", result.Samples, result.Elapsed.Round(timeRound))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 0, "Override the session duration in hours")
	return cmd
}
