package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/smacross/internal/app"
	"github.com/newthinker/smacross/internal/config"
	"github.com/newthinker/smacross/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "smacross",
	Short: "smacross - moving-average crossover backtester",
	Long: `smacross backtests a simple moving-average crossover strategy on a price
series, reports its performance against buy-and-hold, and searches for the
window pair that maximizes final capital.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// setup loads config, builds the logger and the app. The returned cleanup
// closes the app and flushes the logger.
func setup() (*config.Config, *app.App, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Log.Development || debug)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := a.Close(); err != nil {
			log.Warn("closing app", zap.Error(err))
		}
		log.Sync()
	}
	return cfg, a, cleanup, nil
}

// signalContext is cancelled on SIGINT/SIGTERM so long optimizations stop early.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
