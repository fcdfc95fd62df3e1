package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"docbatch/internal/config"
	"docbatch/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		allSplits bool
		failures  int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded progress of the latest run of each partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if _, err := os.Stat(cfg.LedgerPath()); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "No runs recorded yet (ledger %s does not exist)\n", cfg.LedgerPath())
				return nil
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			numParts := cfg.Job.NumParts
			if allSplits {
				numParts = 0
			}
			reports, err := store.LatestRuns(cmd.Context(), numParts)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				fmt.Fprintln(out, "No runs recorded for this split")
				return nil
			}

			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader(fmt.Sprintf("Runs (%s)", cfg.Job.TaskName), colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderRunTable(reports))

			if failures > 0 {
				return printFailures(cmd, store, cfg, reports, failures)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&allSplits, "all", false, "Include runs recorded under any num_parts")
	cmd.Flags().IntVar(&failures, "failures", 0, "List up to N failed items of this partition's latest run")
	return cmd
}

func renderRunTable(reports []ledger.RunReport) string {
	headers := []string{"Part", "Run", "Started", "State"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
	for _, status := range ledger.AllStatuses {
		if status == ledger.StatusEnumerated {
			continue
		}
		headers = append(headers, statusLabel(status))
		aligns = append(aligns, alignRight)
	}
	headers = append(headers, "Done")
	aligns = append(aligns, alignRight)

	rows := make([][]string, 0, len(reports))
	for _, report := range reports {
		run := report.Run
		row := []string{
			fmt.Sprintf("%d/%d", run.PartIndex+1, run.NumParts),
			shortRunID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			runState(run),
		}
		for _, status := range ledger.AllStatuses {
			if status == ledger.StatusEnumerated {
				continue
			}
			row = append(row, strconv.Itoa(report.Counts[status]))
		}
		row = append(row, fmt.Sprintf("%d/%d", report.Done(), run.Total))
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns)
}

func printFailures(cmd *cobra.Command, store *ledger.Store, cfg *config.Config, reports []ledger.RunReport, limit int) error {
	out := cmd.OutOrStdout()
	var runID string
	for _, report := range reports {
		if report.Run.NumParts == cfg.Job.NumParts && report.Run.PartIndex == cfg.Job.PartIndex {
			runID = report.Run.ID
		}
	}
	if runID == "" {
		fmt.Fprintf(out, "No run recorded for partition %d/%d\n", cfg.Job.PartIndex+1, cfg.Job.NumParts)
		return nil
	}
	failed, err := store.Items(cmd.Context(), runID, ledger.StatusFailed)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		fmt.Fprintln(out, "No failed items")
		return nil
	}
	writeFailures(out, failed, limit)
	return nil
}

func writeFailures(out io.Writer, failed []ledger.Item, limit int) {
	shown := failed
	if len(shown) > limit {
		shown = shown[:limit]
	}
	rows := make([][]string, 0, len(shown))
	for _, item := range shown {
		rows = append(rows, []string{item.ItemID, item.Reason, item.SourcePath})
	}
	fmt.Fprintln(out, renderTable([]string{"Item", "Reason", "Source"}, rows, nil))
	if extra := len(failed) - len(shown); extra > 0 {
		fmt.Fprintf(out, "... and %d more\n", extra)
	}
}

var titleCaser = cases.Title(language.Und)

// statusLabel renders a ledger status as a column title, e.g. "Lock Rejected".
func statusLabel(status ledger.Status) string {
	return titleCaser.String(strings.ReplaceAll(string(status), "_", " "))
}

func runState(run ledger.Run) string {
	switch {
	case !run.Finished():
		return "running"
	case run.Stopped:
		return "stopped"
	default:
		return "finished"
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
