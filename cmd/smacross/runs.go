package main

import (
	"github.com/newthinker/smacross/internal/report"
	"github.com/spf13/cobra"
)

var (
	runsSymbol string
	runsLimit  int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded backtest and optimization runs",
	Long:  `List runs recorded in the run history database (requires runs.enabled).`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().StringVar(&runsSymbol, "symbol", "", "only runs for this symbol")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	_, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	history, err := a.History(ctx, runsSymbol, runsLimit)
	if err != nil {
		return err
	}
	return report.PrintRuns(cmd.OutOrStdout(), history)
}
