package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/metrics"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/returns"
	"github.com/newthinker/smacross/internal/strategy/ma_crossover"
	"go.uber.org/zap"
)

// HistoryProvider defines the interface for fetching historical OHLCV data
type HistoryProvider interface {
	FetchHistory(ctx context.Context, q collector.Query) ([]core.OHLCV, error)
}

// Backtester runs the crossover pipeline against historical data
type Backtester struct {
	provider HistoryProvider
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// Option configures a Backtester
type Option func(*Backtester)

// WithMetrics records run outcomes in the given registry.
func WithMetrics(reg *metrics.Registry) Option {
	return func(b *Backtester) { b.metrics = reg }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backtester) { b.logger = logger }
}

// New creates a new Backtester with the given history provider
func New(provider HistoryProvider, opts ...Option) *Backtester {
	b := &Backtester{
		provider: provider,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OptimizeResult is the outcome of a window search over one series
type OptimizeResult struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	Symbol     string           `json:"symbol" yaml:"symbol"`
	ShortRange optimizer.Range  `json:"short_range" yaml:"short_range"`
	LongRange  optimizer.Range  `json:"long_range" yaml:"long_range"`
	Best       optimizer.Result `json:"best" yaml:"best"`
}

// Evaluate runs the pure pipeline on an in-memory series: signals, returns,
// performance summary and trade ledger.
func (b *Backtester) Evaluate(series core.PriceSeries, cfg core.StrategyConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}

	signals, err := ma_crossover.New(cfg.ShortWindow, cfg.LongWindow).Compute(series)
	if err != nil {
		return nil, err
	}
	frame, err := returns.Compute(series, signals, cfg)
	if err != nil {
		return nil, err
	}
	summary, err := Evaluate(frame)
	if err != nil {
		return nil, err
	}

	trades := BuildLedger(frame, series.Symbol, cfg.ShareSize)

	return &Result{
		RunID:      uuid.NewString(),
		Symbol:     series.Symbol,
		Config:     cfg,
		StartDate:  series.Bars[0].Time,
		EndDate:    series.Bars[series.Len()-1].Time,
		Series:     series,
		Signals:    signals,
		Returns:    frame,
		Summary:    summary,
		Trades:     trades,
		TradeStats: Summarize(trades),
		Report:     frame.Report(),
	}, nil
}

// Run fetches the queried history and evaluates it.
func (b *Backtester) Run(ctx context.Context, q collector.Query, cfg core.StrategyConfig) (*Result, error) {
	start := time.Now()

	series, err := b.fetch(ctx, q)
	if err != nil {
		b.recordBacktest(err, start, 0, 0)
		return nil, err
	}

	result, err := b.Evaluate(series, cfg)
	if err != nil {
		b.recordBacktest(err, start, series.Len(), 0)
		return nil, err
	}
	b.recordBacktest(nil, start, series.Len(), len(result.Trades))

	b.logger.Info("backtest complete",
		zap.String("run_id", result.RunID),
		zap.String("symbol", result.Symbol),
		zap.Int("short_window", cfg.ShortWindow),
		zap.Int("long_window", cfg.LongWindow),
		zap.Int("bars", series.Len()),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("performance", result.Report.Performance),
		zap.Float64("edge", result.Report.Edge),
	)
	return result, nil
}

// Optimize fetches the queried history and searches the window grid.
func (b *Backtester) Optimize(ctx context.Context, q collector.Query, shortRange, longRange optimizer.Range, cfg core.StrategyConfig, opts ...optimizer.Option) (*OptimizeResult, error) {
	start := time.Now()

	series, err := b.fetch(ctx, q)
	if err != nil {
		b.recordOptimization(err, start)
		return nil, err
	}
	return b.optimize(ctx, series, shortRange, longRange, cfg, start, opts)
}

// OptimizeSeries searches the window grid over an already fetched series.
func (b *Backtester) OptimizeSeries(ctx context.Context, series core.PriceSeries, shortRange, longRange optimizer.Range, cfg core.StrategyConfig, opts ...optimizer.Option) (*OptimizeResult, error) {
	return b.optimize(ctx, series, shortRange, longRange, cfg, time.Now(), opts)
}

func (b *Backtester) optimize(ctx context.Context, series core.PriceSeries, shortRange, longRange optimizer.Range, cfg core.StrategyConfig, start time.Time, opts []optimizer.Option) (*OptimizeResult, error) {
	if b.metrics != nil {
		opts = append(opts, optimizer.WithObserver(func(p optimizer.Point) {
			b.metrics.RecordGridPoint(p.Scored)
		}))
	}

	best, err := optimizer.Optimize(ctx, series, shortRange, longRange, cfg, opts...)
	b.recordOptimization(err, start)
	if err != nil {
		return nil, err
	}

	result := &OptimizeResult{
		RunID:      uuid.NewString(),
		Symbol:     series.Symbol,
		ShortRange: shortRange,
		LongRange:  longRange,
		Best:       best,
	}

	b.logger.Info("optimization complete",
		zap.String("run_id", result.RunID),
		zap.String("symbol", result.Symbol),
		zap.Stringer("short_range", shortRange),
		zap.Stringer("long_range", longRange),
		zap.Int("best_short", best.Short),
		zap.Int("best_long", best.Long),
		zap.Float64("performance", best.Performance),
		zap.Int("evaluated", best.Evaluated),
		zap.Int("skipped", best.Skipped),
	)
	return result, nil
}

func (b *Backtester) fetch(ctx context.Context, q collector.Query) (core.PriceSeries, error) {
	if b.provider == nil {
		return core.PriceSeries{}, core.WrapError(core.ErrCollectorFailed, errors.New("no history provider configured"))
	}

	bars, err := b.provider.FetchHistory(ctx, q)
	if err != nil {
		b.logger.Warn("fetch failed", zap.String("symbol", q.Symbol), zap.Error(err))
		return core.PriceSeries{}, err
	}
	if len(bars) == 0 {
		return core.PriceSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no historical data for %s", q.Symbol))
	}

	series := core.NewPriceSeries(bars)
	if series.Symbol == "" {
		series.Symbol = q.Symbol
	}
	if series.Interval == "" {
		series.Interval = q.Interval
	}

	b.logger.Debug("fetched history",
		zap.String("symbol", series.Symbol),
		zap.String("interval", series.Interval),
		zap.Int("bars", series.Len()),
	)
	return series, nil
}

func (b *Backtester) recordBacktest(err error, start time.Time, bars, trades int) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordBacktest(outcome(err), time.Since(start).Seconds(), bars, trades)
}

func (b *Backtester) recordOptimization(err error, start time.Time) {
	if b.metrics == nil {
		return
	}
	b.metrics.RecordOptimization(outcome(err), time.Since(start).Seconds())
}

// outcome maps an error to a low-cardinality status label
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, core.ErrInvalidInput), errors.Is(err, core.ErrInvalidRange):
		return "invalid_input"
	case errors.Is(err, core.ErrCollectorFailed), errors.Is(err, core.ErrNoData):
		return "fetch_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
