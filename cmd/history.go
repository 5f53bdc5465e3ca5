package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"clickload/internal/report"
	"clickload/internal/tui/result"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded runs, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			item, err := store.Get(args[0])
			if err != nil {
				return fmt.Errorf("history %s: %w", args[0], err)
			}
			if prefix, _ := cmd.Flags().GetString("export"); prefix != "" {
				paths, err := report.WriteAll(prefix, nil, item.Summary)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			fmt.Fprintln(out, result.NewModel(item.Summary).View())
			return nil
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tHOST\tUSERS\tREQUESTS\tFAIL %\tP90")
		for _, it := range items {
			s := it.Summary
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2f\t%s\n",
				it.ID, it.Timestamp.Format("2006-01-02 15:04:05"), it.Label(),
				s.Config.Users, s.Total.Requests, s.Total.ErrorRate, s.Total.P90)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Show at most this many runs (0 for all)")
	historyCmd.Flags().String("export", "", "Write the stats, failures and summary of the run with this prefix")
}
