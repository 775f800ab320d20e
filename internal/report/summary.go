package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/returns"
	"gopkg.in/yaml.v3"
)

// Supported summary encodings
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Number is a float that survives JSON encoding when it is infinite or NaN.
// Non-finite values are written as the strings "+Inf", "-Inf" and "NaN".
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

// BacktestSummary is the archived description of one backtest run
type BacktestSummary struct {
	RunID          string    `json:"run_id" yaml:"run_id"`
	Symbol         string    `json:"symbol" yaml:"symbol"`
	ShortWindow    int       `json:"short_window" yaml:"short_window"`
	LongWindow     int       `json:"long_window" yaml:"long_window"`
	InitialCapital float64   `json:"initial_capital" yaml:"initial_capital"`
	ShareSize      float64   `json:"share_size" yaml:"share_size"`
	StartDate      time.Time `json:"start_date" yaml:"start_date"`
	EndDate        time.Time `json:"end_date" yaml:"end_date"`
	Bars           int       `json:"bars" yaml:"bars"`

	Performance float64 `json:"performance" yaml:"performance"`
	Edge        float64 `json:"edge" yaml:"edge"`
	BuyAndHold  float64 `json:"buy_and_hold" yaml:"buy_and_hold"`

	AnnualReturn     Number `json:"annual_return" yaml:"annual_return"`
	AnnualVolatility Number `json:"annual_volatility" yaml:"annual_volatility"`
	SharpeRatio      Number `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	SortinoRatio     Number `json:"sortino_ratio" yaml:"sortino_ratio"`
	MaxDrawdown      Number `json:"max_drawdown" yaml:"max_drawdown"`
	HasDownside      bool   `json:"has_downside" yaml:"has_downside"`
	Periods          int    `json:"periods" yaml:"periods"`

	Trades backtest.Stats `json:"trades" yaml:"trades"`
}

// NewBacktestSummary flattens a result. Performance and edge are rounded to cents.
func NewBacktestSummary(r *backtest.Result) BacktestSummary {
	return BacktestSummary{
		RunID:            r.RunID,
		Symbol:           r.Symbol,
		ShortWindow:      r.Config.ShortWindow,
		LongWindow:       r.Config.LongWindow,
		InitialCapital:   r.Config.InitialCapital,
		ShareSize:        r.Config.ShareSize,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Bars:             len(r.Signals.Rows),
		Performance:      r.Report.Performance,
		Edge:             r.Report.Edge,
		BuyAndHold:       returns.Round2(r.Returns.BuyAndHold()),
		AnnualReturn:     Number(r.Summary.AnnualReturn),
		AnnualVolatility: Number(r.Summary.AnnualVolatility),
		SharpeRatio:      Number(r.Summary.SharpeRatio),
		SortinoRatio:     Number(r.Summary.SortinoRatio),
		MaxDrawdown:      Number(r.Summary.MaxDrawdown),
		HasDownside:      r.Summary.HasDownside,
		Periods:          r.Summary.Periods,
		Trades:           r.TradeStats,
	}
}

// OptimizeSummary is the archived description of one optimization run
type OptimizeSummary struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	Symbol      string          `json:"symbol" yaml:"symbol"`
	ShortRange  optimizer.Range `json:"short_range" yaml:"short_range"`
	LongRange   optimizer.Range `json:"long_range" yaml:"long_range"`
	ShortWindow int             `json:"short_window" yaml:"short_window"`
	LongWindow  int             `json:"long_window" yaml:"long_window"`
	Performance float64         `json:"performance" yaml:"performance"`
	Evaluated   int             `json:"evaluated" yaml:"evaluated"`
	Skipped     int             `json:"skipped" yaml:"skipped"`
}

// NewOptimizeSummary flattens an optimization result, rounding the score.
func NewOptimizeSummary(r *backtest.OptimizeResult) OptimizeSummary {
	best := r.Best.Rounded()
	return OptimizeSummary{
		RunID:       r.RunID,
		Symbol:      r.Symbol,
		ShortRange:  r.ShortRange,
		LongRange:   r.LongRange,
		ShortWindow: best.Short,
		LongWindow:  best.Long,
		Performance: best.Performance,
		Evaluated:   best.Evaluated,
		Skipped:     best.Skipped,
	}
}

// Encode renders v as indented JSON or as YAML.
func Encode(format string, v any) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("unsupported format: %s", format))
	}
}
