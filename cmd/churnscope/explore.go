package main

import (
	"fmt"
	"os"

	"github.com/paveg/churnscope/internal/dataset"
	"github.com/paveg/churnscope/internal/explore"
	"github.com/paveg/churnscope/internal/report"
	"github.com/spf13/cobra"
)

func (a *app) exploreCmd() *cobra.Command {
	var (
		dataPath string
		target   string
		htmlPath string
	)

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Summarize a customer export before modeling",
		Long: `Print per-column summary statistics, each column's correlation with the
target and the distinct values of every column. --html additionally writes
the correlation matrix as an interactive heatmap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := dataset.LoadCSVFile(dataPath)
			if err != nil {
				return err
			}
			a.logger.Info("Loaded customers", "path", dataPath, "rows", len(rows))

			e := report.Exploration{Rows: len(rows), Target: target}
			if e.Describe, err = explore.Describe(rows); err != nil {
				return err
			}
			if e.Unique, err = explore.UniqueCounts(rows); err != nil {
				return err
			}
			if len(rows) > 1 {
				if e.Correlation, err = explore.CorrelationMatrix(rows); err != nil {
					return err
				}
			}

			if htmlPath != "" {
				if err := writeCorrelationPage(htmlPath, e.Correlation); err != nil {
					return err
				}
				a.logger.Info("Wrote correlation heatmap", "path", htmlPath)
			}
			return report.ExplorationText(cmd.OutOrStdout(), e)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "customer CSV export")
	cmd.Flags().StringVar(&target, "target", "Exited", "column to rank correlations against")
	cmd.Flags().StringVar(&htmlPath, "html", "", "write a correlation heatmap page to this path")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func writeCorrelationPage(path string, c explore.Correlation) (err error) {
	if len(c.Columns) == 0 {
		return fmt.Errorf("correlation heatmap needs at least two rows")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	return report.CorrelationPage(f, c)
}
