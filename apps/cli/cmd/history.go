package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/restflow/restflow/packages/history"
)

var (
	historyLimit int
	historyPrune int
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show results of past runs",
	Long: `Show runs recorded with 'run --history'. Without arguments the
latest runs are listed; with a run id the stored case outcomes are shown.

Examples:
  restflow history
  restflow history 12
  restflow history --limit 50
  restflow history --prune 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to list")
	historyCmd.Flags().IntVar(&historyPrune, "prune", 0, "Delete all but the newest N runs")
	historyCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("RESTFLOW_HISTORY_DB", defaultHistoryPath()), "History database path (env: RESTFLOW_HISTORY_DB)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDBFlag)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	if historyPrune > 0 {
		if err := store.Prune(ctx, historyPrune); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned history to the newest %d runs.\n", historyPrune)
		return nil
	}

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		return showRun(cmd, store, runID)
	}

	runs, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded runs. Use 'restflow run --history' to record one.\n")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-6s %-20s %-8s %7s %7s %7s %7s %10s\n",
		"ID", "STARTED", "STATUS", "PASSED", "FAILED", "ERRORS", "SKIPPED", "DURATION")
	for _, r := range runs {
		status := "ok"
		if !r.Ok() {
			status = "failed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-20s %-8s %7d %7d %7d %7d %10s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status,
			r.Passed, r.Failed, r.Errors, r.Skipped, r.Duration)
	}
	return nil
}

func showRun(cmd *cobra.Command, store *history.Store, runID int64) error {
	cases, err := store.Cases(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no run with id %d", runID)
	}

	suite := ""
	for _, c := range cases {
		if c.Suite != suite {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", c.Suite)
			suite = c.Suite
		}
		label := c.Name
		if c.Module != "" {
			label = c.Module + " / " + c.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %s (%s)", c.Outcome, label, c.Duration)
		if c.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), ": %s", c.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n")
	}
	return nil
}
