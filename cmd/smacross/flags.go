package main

import (
	"fmt"
	"time"

	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/config"
	"github.com/newthinker/smacross/internal/core"
	"github.com/spf13/cobra"
)

// dataFlags are shared by backtest and optimize
type dataFlags struct {
	source   string
	period   string
	interval string
	from     string
	to       string
	capital  float64
	shares   float64
	export   bool
}

func (f *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.source, "source", "", "data source: yahoo, binance or csv (default from config)")
	cmd.Flags().StringVar(&f.period, "period", "", "look-back period, e.g. ytd, 1y, 6mo (default from config)")
	cmd.Flags().StringVar(&f.interval, "interval", "", "bar interval, e.g. 1h, 1d (default from config)")
	cmd.Flags().StringVar(&f.from, "from", "", "start date YYYY-MM-DD, overrides --period")
	cmd.Flags().StringVar(&f.to, "to", "", "end date YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.capital, "capital", 10000, "initial capital")
	cmd.Flags().Float64Var(&f.shares, "shares", 50, "shares per trade in the ledger")
	cmd.Flags().BoolVar(&f.export, "export", false, "archive tables and summary for the run")
}

// query builds the collector query for target, a ticker or a CSV path.
func (f *dataFlags) query(target string) (collector.Query, error) {
	q := collector.Query{
		Symbol:   target,
		Period:   f.period,
		Interval: f.interval,
	}

	var err error
	if f.from != "" {
		if q.Start, err = time.Parse("2006-01-02", f.from); err != nil {
			return q, fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if f.to != "" {
		if q.End, err = time.Parse("2006-01-02", f.to); err != nil {
			return q, fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err)
		}
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("end date must be after start date")
	}
	return q, nil
}

// strategy overlays explicitly set flags on the configured strategy.
func (f *dataFlags) strategy(cmd *cobra.Command, cfg *config.Config) core.StrategyConfig {
	s := cfg.Strategy.Core()
	if cmd.Flags().Changed("capital") {
		s.InitialCapital = f.capital
	}
	if cmd.Flags().Changed("shares") {
		s.ShareSize = f.shares
	}
	return s
}
