package main

import (
	"github.com/newthinker/smacross/internal/app"
	"github.com/newthinker/smacross/internal/report"
	"github.com/spf13/cobra"
)

var (
	optimizeData       dataFlags
	optimizeShortRange string
	optimizeLongRange  string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <ticker|file.csv>",
	Short: "Search the short/long window grid for the best final capital",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func init() {
	optimizeData.register(optimizeCmd)
	optimizeCmd.Flags().StringVar(&optimizeShortRange, "short-range", "", "short window grid start:stop[:step] (default 20:60:1)")
	optimizeCmd.Flags().StringVar(&optimizeLongRange, "long-range", "", "long window grid start:stop[:step] (default 20:110:1)")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	q, err := optimizeData.query(args[0])
	if err != nil {
		return err
	}

	shortRange, longRange, err := parseRanges(cfg.Optimizer.ShortRange, cfg.Optimizer.LongRange,
		optimizeShortRange, optimizeLongRange)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.Optimize(ctx, app.OptimizeRequest{
		Source:     optimizeData.source,
		Query:      q,
		Strategy:   optimizeData.strategy(cmd, cfg),
		ShortRange: shortRange,
		LongRange:  longRange,
		Export:     optimizeData.export,
	})
	if err != nil {
		return err
	}

	return report.PrintOptimization(cmd.OutOrStdout(), result)
}
