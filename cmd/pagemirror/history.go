package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vertextoedge/pagemirror/internal/adapter/sqlite"
	"github.com/vertextoedge/pagemirror/internal/domain"
	"github.com/vertextoedge/pagemirror/internal/logger"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history [run-id]",
		Aliases: []string{"h"},
		Short:   "Show recorded runs, or the results of one run",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := sqlite.Open(cfg.Manifest.GetPath(cfg.Mirror.OutputRoot))
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd.OutOrStdout(), store, args[0], opts.jsonOutput)
			}

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringP("output", "o", "scraped_files", "output root whose manifest is read")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print as JSON")
	return cmd
}

func showRun(w io.Writer, store *sqlite.Store, runID string, asJSON bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	results, err := store.ListResults(runID)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(w, struct {
			Run     *domain.Run            `json:"run"`
			Results []*domain.ResultRecord `json:"results"`
		}{run, results})
	}

	printRuns(w, []*domain.Run{run})
	for _, r := range results {
		line := fmt.Sprintf("  %3d %-8s %-6s %s", r.Index, r.Outcome, r.Category, r.URL)
		if r.Error != "" {
			line += " (" + r.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func printRuns(w io.Writer, runs []*domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-9s  %s  saved=%d skipped=%d failed=%d (%s) in %s\n",
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.Status,
			r.TargetURL,
			r.Summary.Saved, r.Summary.Skipped, r.Summary.Failed,
			humanize.Bytes(uint64(r.Summary.Bytes)),
			r.Duration().Round(time.Millisecond),
		)
		if r.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", r.Error)
		}
	}
}
