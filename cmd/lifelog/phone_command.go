package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lifelog/internal/phone"
)

func newPhoneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "phone",
		Short: "Import the newest screen-time pickup export",
		Long: "Scans the inbox directory for the most recent Pickup export, converts sessions to " +
			"per-pickup durations, and merges them into the clean phone dataset. Existing rows win " +
			"on duplicate timestamps, so re-importing the same export changes nothing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
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

			importer, err := phone.New(cfg, store, logger)
			if err != nil {
				return err
			}

			result, err := importer.Import(cmd.Context())
			if err != nil {
				if errors.Is(err, phone.ErrNoExport) {
					return fmt.Errorf("%w; AirDrop the export into %s first", phone.ErrNoExport, cfg.Paths.InboxDir)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d added, %d total records\n",
				filepath.Base(result.SourceFile), result.Added(), result.Total)
			return nil
		},
	}
}
