package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neromous/Beaver/internal/history"
)

var (
	flagHistoryLimit int
	flagHistoryStats bool
	flagHistoryClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the execution log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return err
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if flagHistoryClear {
			n, err := store.Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "cleared %d entries\n", n)
			return nil
		}
		if flagHistoryStats {
			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "total:     %d\n", stats.Total)
			fmt.Fprintf(w, "succeeded: %d\n", stats.Succeeded)
			fmt.Fprintf(w, "failed:    %d\n", stats.Failed)
			fmt.Fprintf(w, "avg time:  %.1fms\n", stats.AvgDurationMS)
			return nil
		}

		entries, err := store.Recent(flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(w, "history is empty")
			return nil
		}
		for _, e := range entries {
			status := "ok"
			if !e.OK {
				status = "ERR"
			}
			source := strings.ReplaceAll(e.Source, "\n", " ")
			fmt.Fprintf(w, "%s  %-3s %6dms  %s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				status,
				e.Duration.Milliseconds(),
				truncate(source, 60))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of entries")
	historyCmd.Flags().BoolVar(&flagHistoryStats, "stats", false, "print summary statistics")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "delete all entries")
}

// truncate shortens s to max runes, marking the cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
