// Package returns turns a signal frame into lagged strategy returns and
// compounded capital curves.
package returns

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/strategy/ma_crossover"
)

// Row is one eligible period of the return frame.
type Row struct {
	Time           time.Time
	Close          float64
	Position       core.Position
	Signal         core.Signal
	MarketReturn   float64 // ln(close[t] / close[t-1])
	StrategyReturn float64 // position[t-1] * MarketReturn
	BuyHoldValue   float64
	StrategyValue  float64
}

// Frame holds the returns for rows where both averages are defined, minus the
// first such row, which has no previous position to trade on.
type Frame struct {
	Symbol         string
	ShortWindow    int
	LongWindow     int
	InitialCapital float64
	Rows           []Row
}

// Report is the rounded pair printed at the reporting boundary.
type Report struct {
	Performance float64 `json:"performance" yaml:"performance"`
	Edge        float64 `json:"edge" yaml:"edge"`
}

// Compute derives market and strategy returns from the signal frame.
//
// A position set at the close of period t-1 earns the market return of period t.
// Both capital curves start at cfg.InitialCapital. The strategy curve compounds over
// the frame rows; buy-and-hold also includes the return into the first defined row.
func Compute(series core.PriceSeries, signals *ma_crossover.Frame, cfg core.StrategyConfig) (*Frame, error) {
	if signals == nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("signal frame is nil"))
	}
	if len(signals.Rows) != series.Len() {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("signal frame has %d rows, series has %d", len(signals.Rows), series.Len()))
	}

	frame := &Frame{
		Symbol:         series.Symbol,
		ShortWindow:    signals.ShortWindow,
		LongWindow:     signals.LongWindow,
		InitialCapital: cfg.InitialCapital,
	}

	first := signals.FirstDefined()
	if first < 0 {
		return frame, nil
	}

	// Buy-and-hold is already invested over the first defined row; the strategy
	// has no position to trade on until the row after it.
	var marketSum, strategySum float64
	if first > 0 {
		marketSum = math.Log(series.Bars[first].Close / series.Bars[first-1].Close)
	}
	for i := first + 1; i < len(signals.Rows); i++ {
		row := signals.Rows[i]
		prev := signals.Rows[i-1]

		market := math.Log(series.Bars[i].Close / series.Bars[i-1].Close)
		strategy := prev.Position.Float() * market
		marketSum += market
		strategySum += strategy

		frame.Rows = append(frame.Rows, Row{
			Time:           row.Time,
			Close:          row.Close,
			Position:       row.Position,
			Signal:         row.Signal,
			MarketReturn:   market,
			StrategyReturn: strategy,
			BuyHoldValue:   cfg.InitialCapital * math.Exp(marketSum),
			StrategyValue:  cfg.InitialCapital * math.Exp(strategySum),
		})
	}

	return frame, nil
}

// Len returns the number of eligible rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Empty reports whether no row survived warm-up.
func (f *Frame) Empty() bool {
	return len(f.Rows) == 0
}

// Performance is the final strategy capital, or the initial capital for an empty frame.
func (f *Frame) Performance() float64 {
	if f.Empty() {
		return f.InitialCapital
	}
	return f.Rows[len(f.Rows)-1].StrategyValue
}

// BuyAndHold is the final buy-and-hold capital, or the initial capital for an empty frame.
func (f *Frame) BuyAndHold() float64 {
	if f.Empty() {
		return f.InitialCapital
	}
	return f.Rows[len(f.Rows)-1].BuyHoldValue
}

// Edge is strategy performance minus buy-and-hold.
func (f *Frame) Edge() float64 {
	return f.Performance() - f.BuyAndHold()
}

// Report rounds performance and edge to cents.
func (f *Frame) Report() Report {
	return Report{
		Performance: Round2(f.Performance()),
		Edge:        Round2(f.Edge()),
	}
}

// MarketReturns returns the per-period market log returns.
func (f *Frame) MarketReturns() []float64 {
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.MarketReturn
	}
	return out
}

// StrategyReturns returns the per-period strategy log returns.
func (f *Frame) StrategyReturns() []float64 {
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.StrategyReturn
	}
	return out
}

// StrategyValues returns the compounded strategy capital curve.
func (f *Frame) StrategyValues() []float64 {
	out := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r.StrategyValue
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
