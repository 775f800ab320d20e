// Package runs keeps a history of backtest and optimization runs.
package runs

import (
	"context"
	"math"
	"time"

	"github.com/newthinker/smacross/internal/backtest"
)

// Run kinds
const (
	KindBacktest = "backtest"
	KindOptimize = "optimize"
)

// Run is one recorded invocation. For optimizations the windows are the best pair found.
type Run struct {
	ID             string
	Kind           string
	Symbol         string
	ShortWindow    int
	LongWindow     int
	InitialCapital float64
	ShareSize      float64
	Performance    float64
	Edge           float64
	SharpeRatio    float64 // NaN when undefined
	SortinoRatio   float64 // NaN when undefined
	Trades         int
	Evaluated      int
	StartDate      time.Time
	EndDate        time.Time
	CreatedAt      time.Time
}

// Recorder persists runs
type Recorder interface {
	RecordBacktest(ctx context.Context, r *backtest.Result) error
	RecordOptimization(ctx context.Context, r *backtest.OptimizeResult, cfg RunConfig) error
	Close() error
}

// RunConfig carries the strategy settings an optimization ran with.
type RunConfig struct {
	InitialCapital float64
	ShareSize      float64
}

// FromBacktest converts a backtest result into a run row.
func FromBacktest(r *backtest.Result) Run {
	return Run{
		ID:             r.RunID,
		Kind:           KindBacktest,
		Symbol:         r.Symbol,
		ShortWindow:    r.Config.ShortWindow,
		LongWindow:     r.Config.LongWindow,
		InitialCapital: r.Config.InitialCapital,
		ShareSize:      r.Config.ShareSize,
		Performance:    r.Report.Performance,
		Edge:           r.Report.Edge,
		SharpeRatio:    r.Summary.SharpeRatio,
		SortinoRatio:   r.Summary.SortinoRatio,
		Trades:         len(r.Trades),
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
}

// FromOptimization converts an optimization result into a run row.
func FromOptimization(r *backtest.OptimizeResult, cfg RunConfig) Run {
	best := r.Best.Rounded()
	return Run{
		ID:             r.RunID,
		Kind:           KindOptimize,
		Symbol:         r.Symbol,
		ShortWindow:    best.Short,
		LongWindow:     best.Long,
		InitialCapital: cfg.InitialCapital,
		ShareSize:      cfg.ShareSize,
		Performance:    best.Performance,
		SharpeRatio:    math.NaN(),
		SortinoRatio:   math.NaN(),
		Evaluated:      best.Evaluated,
	}
}

// NoopRecorder is used when no run database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBacktest(_ context.Context, _ *backtest.Result) error { return nil }
func (n *NoopRecorder) RecordOptimization(_ context.Context, _ *backtest.OptimizeResult, _ RunConfig) error {
	return nil
}
func (n *NoopRecorder) Close() error { return nil }
