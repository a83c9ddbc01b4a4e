package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/paveg/churnscope/internal/evaluate"
	"github.com/paveg/churnscope/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		path  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluation runs",
		Long:  `List the runs recorded in the history database, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openHistory(path)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "run\tcreated\tmodel\trows\tcutoff\tprecision\trecall\tauc\tyouden cutoff")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID, time.Unix(0, r.CreatedAt).Format(time.RFC3339), r.Model, r.Rows,
					evaluate.Defined(r.Cutoff), nullable(r.Precision), nullable(r.Recall),
					nullable(r.AUC), nullable(r.YoudenCutoff))
			}
			return tw.Flush()
		},
	}

	cmd.PersistentFlags().StringVar(&path, "history", "", "history database (default: history_path from config)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list (0 = all)")
	cmd.AddCommand(a.historyDeleteCmd(&path))
	return cmd
}

func (a *app) historyDeleteCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openHistory(*path)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.logger.Info("Deleted run", "run_id", args[0])
			return nil
		},
	}
}

func (a *app) openHistory(path string) (*store.Store, error) {
	if path == "" {
		path = a.cfg.HistoryPath
	}
	if path == "" {
		return nil, fmt.Errorf("no history database configured: pass --history or set history_path")
	}
	return store.Open(path)
}

// nullable renders a stored metric, printing NULL as undefined.
func nullable(v *float64) string {
	if v == nil {
		return evaluate.UndefinedMarker
	}
	return evaluate.Defined(*v).String()
}
