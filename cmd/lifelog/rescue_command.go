package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lifelog/internal/collector"
	"lifelog/internal/notifications"
)

func newRescueCommand(ctx *commandContext) *cobra.Command {
	var windowStart, windowEnd string

	cmd := &cobra.Command{
		Use:   "rescue",
		Short: "Backfill plays from a missed collection window",
		Long: "Fetches deep listening history once and appends every play inside the configured " +
			"window that is not already stored. Window bounds come from rescue.window_start and " +
			"rescue.window_end, or the --from/--to flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if windowStart != "" {
				cfg.Rescue.WindowStart = windowStart
			}
			if windowEnd != "" {
				cfg.Rescue.WindowEnd = windowEnd
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

			notifier := notifications.NewService(cfg)
			c, err := collector.New(cfg, history, catalog, notifier, store, logger)
			if err != nil {
				return err
			}

			result, err := c.Rescue(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Saved == 0 {
				fmt.Fprintln(out, "No tracks found inside the rescue window")
				return nil
			}
			fmt.Fprintf(out, "Rescued %d tracks (%d candidates examined)\n", result.Saved, result.Fetched)
			return nil
		},
	}

	cmd.Flags().StringVar(&windowStart, "from", "", "Window start, e.g. \"2025-11-29 18:01:00\"")
	cmd.Flags().StringVar(&windowEnd, "to", "", "Window end, e.g. \"2025-11-29 21:05:00\"")
	return cmd
}
