package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lifelog/internal/journal"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show recent collection, import, and tracking runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Kind,
					formatFinish(run),
					strconv.Itoa(run.Fetched),
					strconv.Itoa(run.NewRows),
					run.Note,
				})
			}

			headers := []string{"Started", "Kind", "Finished", "Fetched", "New", "Note"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func formatFinish(run journal.Run) string {
	if run.FinishedAt.IsZero() {
		return "running"
	}
	return run.FinishedAt.Format("15:04:05")
}
