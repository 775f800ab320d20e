package main

import (
	"fmt"

	"github.com/newthinker/smacross/internal/app"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/report"
	"github.com/spf13/cobra"
)

var (
	backtestData       dataFlags
	backtestShort      int
	backtestLong       int
	backtestTrades     bool
	backtestOptimize   bool
	backtestShortRange string
	backtestLongRange  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest <ticker|file.csv>",
	Short: "Backtest the SMA crossover on one series",
	Long: `Fetch a price series, compute the short/long SMA crossover positions and
print the final strategy capital and its edge over buy-and-hold.`,
	Args: cobra.ExactArgs(1),
	RunE: runBacktest,
}

func init() {
	backtestData.register(backtestCmd)
	backtestCmd.Flags().IntVar(&backtestShort, "short", 30, "short SMA window")
	backtestCmd.Flags().IntVar(&backtestLong, "long", 50, "long SMA window")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "print the trade ledger")
	backtestCmd.Flags().BoolVar(&backtestOptimize, "optimize", false, "also search for the best window pair")
	backtestCmd.Flags().StringVar(&backtestShortRange, "short-range", "", "short window grid start:stop[:step] (default from config)")
	backtestCmd.Flags().StringVar(&backtestLongRange, "long-range", "", "long window grid start:stop[:step] (default from config)")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	q, err := backtestData.query(args[0])
	if err != nil {
		return err
	}

	strat := backtestData.strategy(cmd, cfg)
	if cmd.Flags().Changed("short") {
		strat.ShortWindow = backtestShort
	}
	if cmd.Flags().Changed("long") {
		strat.LongWindow = backtestLong
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.Backtest(ctx, app.BacktestRequest{
		Source:   backtestData.source,
		Query:    q,
		Strategy: strat,
		Export:   backtestData.export,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := report.PrintBacktest(out, result, backtestTrades); err != nil {
		return err
	}

	if !backtestOptimize {
		return nil
	}

	shortRange, longRange, err := parseRanges(cfg.Optimizer.ShortRange, cfg.Optimizer.LongRange,
		backtestShortRange, backtestLongRange)
	if err != nil {
		return err
	}

	// Score the same bars that were just reported.
	best, err := a.OptimizeSeries(ctx, result.Series, app.OptimizeRequest{
		Strategy:   strat,
		ShortRange: shortRange,
		LongRange:  longRange,
		Export:     backtestData.export,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	return report.PrintOptimization(out, best)
}

// parseRanges overrides the configured grid with any flag values given.
func parseRanges(short, long optimizer.Range, shortFlag, longFlag string) (optimizer.Range, optimizer.Range, error) {
	var err error
	if shortFlag != "" {
		if short, err = optimizer.ParseRange(shortFlag); err != nil {
			return short, long, fmt.Errorf("--short-range: %w", err)
		}
	}
	if longFlag != "" {
		if long, err = optimizer.ParseRange(longFlag); err != nil {
			return short, long, fmt.Errorf("--long-range: %w", err)
		}
	}
	return short, long, nil
}
