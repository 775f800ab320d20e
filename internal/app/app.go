// Package app wires configuration, collectors, the backtest pipeline, exporters
// and run history into the commands' entry points.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/collector/binance"
	"github.com/newthinker/smacross/internal/collector/csvfile"
	"github.com/newthinker/smacross/internal/collector/yahoo"
	"github.com/newthinker/smacross/internal/config"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/metrics"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/report"
	"github.com/newthinker/smacross/internal/storage/archive"
	"github.com/newthinker/smacross/internal/storage/runs"
	"go.uber.org/zap"
)

// BacktestRequest describes one backtest invocation
type BacktestRequest struct {
	Source   string // collector name; empty uses the configured source
	Query    collector.Query
	Strategy core.StrategyConfig
	Export   bool
}

// OptimizeRequest describes one window search
type OptimizeRequest struct {
	Source     string
	Query      collector.Query
	Strategy   core.StrategyConfig
	ShortRange optimizer.Range
	LongRange  optimizer.Range
	Export     bool
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	collectors *collector.Registry
	metrics    *metrics.Registry
	recorder   runs.Recorder
	history    *runs.SQLiteRecorder

	storeOnce sync.Once
	store     archive.Storage
	storeErr  error
}

// New creates an App and initializes every collector from the config.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		collectors: collector.NewRegistry(),
		metrics:    metrics.NewRegistry(),
		recorder:   runs.NewNoopRecorder(),
	}

	transport := metrics.InstrumentTransport(a.metrics, logger, http.DefaultTransport)

	y := yahoo.New().WithTransport(transport)
	if err := y.Init(cfg.Data.Yahoo.Collector()); err != nil {
		return nil, fmt.Errorf("init yahoo collector: %w", err)
	}
	a.RegisterCollector(y)

	b := binance.New().WithTransport(transport)
	if err := b.Init(cfg.Data.Binance.Collector()); err != nil {
		return nil, fmt.Errorf("init binance collector: %w", err)
	}
	a.RegisterCollector(b)

	c := csvfile.New()
	if err := c.Init(collector.Config{Extra: map[string]any{"dir": cfg.Data.Dir}}); err != nil {
		return nil, fmt.Errorf("init csv collector: %w", err)
	}
	a.RegisterCollector(c)

	if cfg.Runs.Enabled {
		rec, err := runs.NewSQLiteRecorder(cfg.Runs.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		a.recorder = rec
		a.history = rec
	}

	return a, nil
}

// RegisterCollector adds or replaces a collector
func (a *App) RegisterCollector(c collector.Collector) {
	a.collectors.Register(c)
}

// Metrics returns the app's metrics registry
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Backtest fetches history, runs the pipeline, records the run and optionally
// archives its artifacts.
func (a *App) Backtest(ctx context.Context, req BacktestRequest) (*backtest.Result, error) {
	bt, err := a.backtester(req.Source)
	if err != nil {
		return nil, err
	}

	result, err := bt.Run(ctx, a.query(req.Query), req.Strategy)
	if err != nil {
		return nil, err
	}

	if err := a.recorder.RecordBacktest(ctx, result); err != nil {
		a.logger.Warn("failed to record run", zap.String("run_id", result.RunID), zap.Error(err))
	}

	if req.Export || a.cfg.Output.Export {
		exp, err := a.exporter()
		if err != nil {
			return result, err
		}
		if _, err := exp.ExportBacktest(ctx, result); err != nil {
			return result, err
		}
	}

	return result, a.flushMetrics()
}

// Optimize fetches history and searches the window grid.
func (a *App) Optimize(ctx context.Context, req OptimizeRequest) (*backtest.OptimizeResult, error) {
	bt, err := a.backtester(req.Source)
	if err != nil {
		return nil, err
	}

	result, err := bt.Optimize(ctx, a.query(req.Query), req.ShortRange, req.LongRange, req.Strategy,
		a.cfg.Optimizer.Options()...)
	if err != nil {
		return nil, err
	}
	return a.finishOptimize(ctx, req, result)
}

// OptimizeSeries searches the window grid over a series that was already
// fetched, e.g. by Backtest. Source and Query in req are ignored.
func (a *App) OptimizeSeries(ctx context.Context, series core.PriceSeries, req OptimizeRequest) (*backtest.OptimizeResult, error) {
	bt := backtest.New(nil, backtest.WithMetrics(a.metrics), backtest.WithLogger(a.logger))

	result, err := bt.OptimizeSeries(ctx, series, req.ShortRange, req.LongRange, req.Strategy,
		a.cfg.Optimizer.Options()...)
	if err != nil {
		return nil, err
	}
	return a.finishOptimize(ctx, req, result)
}

func (a *App) finishOptimize(ctx context.Context, req OptimizeRequest, result *backtest.OptimizeResult) (*backtest.OptimizeResult, error) {
	cfg := runs.RunConfig{InitialCapital: req.Strategy.InitialCapital, ShareSize: req.Strategy.ShareSize}
	if err := a.recorder.RecordOptimization(ctx, result, cfg); err != nil {
		a.logger.Warn("failed to record run", zap.String("run_id", result.RunID), zap.Error(err))
	}

	if req.Export || a.cfg.Output.Export {
		exp, err := a.exporter()
		if err != nil {
			return result, err
		}
		if _, err := exp.ExportOptimization(ctx, result); err != nil {
			return result, err
		}
	}

	return result, a.flushMetrics()
}

// History lists recorded runs, newest first. symbol filters when non-empty.
func (a *App) History(ctx context.Context, symbol string, limit int) ([]runs.Run, error) {
	if a.history == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("run history is disabled (set runs.enabled)"))
	}
	return a.history.List(ctx, symbol, limit)
}

// Run returns one recorded run by id.
func (a *App) Run(ctx context.Context, id string) (*runs.Run, error) {
	if a.history == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("run history is disabled (set runs.enabled)"))
	}
	return a.history.Get(ctx, id)
}

// Close releases the run database.
func (a *App) Close() error {
	return a.recorder.Close()
}

func (a *App) backtester(source string) (*backtest.Backtester, error) {
	if source == "" {
		source = a.cfg.Data.Source
	}
	c, ok := a.collectors.Get(source)
	if !ok {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("unknown data source %q (available: %v)", source, a.collectors.Names()))
	}
	return backtest.New(c, backtest.WithMetrics(a.metrics), backtest.WithLogger(a.logger)), nil
}

// query fills unset fields from the data config.
func (a *App) query(q collector.Query) collector.Query {
	if q.Period == "" && !q.HasRange() {
		q.Period = a.cfg.Data.Period
	}
	if q.Interval == "" {
		q.Interval = a.cfg.Data.Interval
	}
	return q
}

func (a *App) exporter() (*report.Exporter, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = archive.New(a.cfg.Output.Archive)
	})
	if a.storeErr != nil {
		return nil, a.storeErr
	}
	return report.NewExporter(a.store, a.cfg.Output.Format, a.logger), nil
}

func (a *App) flushMetrics() error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
