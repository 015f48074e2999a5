package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/talvikko/sheetsync/internal/mirror"
)

const defaultHistoryLimit = 50

// newHistoryCmd builds the history command: print recent journal entries,
// newest first.
func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently applied change events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if cfg.Sync.JournalPath == "" {
				return errors.New("journaling is disabled (sync.journal_path is empty)")
			}

			logger := buildLogger(cfg)

			journal, err := mirror.OpenJournal(cmd.Context(), cfg.Sync.JournalPath, "", logger)
			if err != nil {
				return err
			}
			defer journal.Close()

			entries, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no journaled events")
				return nil
			}

			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %-8s row=%-5d %s\n",
					e.CreatedAt.Format(time.RFC3339), e.Op, e.Outcome, e.RowNum, e.EntityID)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum entries to show")

	return cmd
}
