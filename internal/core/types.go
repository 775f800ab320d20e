package core

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1h", "1d", ...
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// PriceSeries is an ordered, time-indexed sequence of bars for one symbol.
// It is owned by the caller and never modified by the engine.
type PriceSeries struct {
	Symbol   string
	Interval string
	Bars     []OHLCV
}

// NewPriceSeries builds a series from bars, taking symbol and interval from the first bar.
func NewPriceSeries(bars []OHLCV) PriceSeries {
	s := PriceSeries{Bars: bars}
	if len(bars) > 0 {
		s.Symbol = bars[0].Symbol
		s.Interval = bars[0].Interval
	}
	return s
}

// Len returns the number of bars.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Closes extracts closing prices
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}
	return closes
}

// Validate checks the structural invariants: non-empty, strictly increasing
// timestamps and a usable close on every bar. Unsorted input is rejected, never reordered.
func (s PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return WrapError(ErrInvalidInput, fmt.Errorf("series is empty"))
	}
	for i, bar := range s.Bars {
		if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) || bar.Close <= 0 {
			return WrapError(ErrInvalidInput, fmt.Errorf("row %d: close must be a positive number, got %v", i, bar.Close))
		}
		if i > 0 && !bar.Time.After(s.Bars[i-1].Time) {
			return WrapError(ErrInvalidInput, fmt.Errorf("row %d: timestamp %s not after %s",
				i, bar.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339)))
		}
	}
	return nil
}

// NullFloat is a value that may be undefined, e.g. a moving average during warm-up.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some returns a defined NullFloat.
func Some(v float64) NullFloat {
	return NullFloat{Float64: v, Valid: true}
}

// String renders undefined values as an empty cell.
func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return fmt.Sprintf("%g", n.Float64)
}

// Position is the directional stance implied by the moving averages.
type Position int8

const (
	PositionUndefined Position = 0
	PositionLong      Position = 1
	PositionShort     Position = -1
)

// Defined reports whether the position has been established.
func (p Position) Defined() bool {
	return p == PositionLong || p == PositionShort
}

// Float returns the position as a return multiplier.
func (p Position) Float() float64 {
	return float64(p)
}

func (p Position) String() string {
	switch p {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "undefined"
	}
}

// Signal marks a position transition: entry when the position flips to long,
// exit when it flips to short, none otherwise.
type Signal int8

const (
	SignalNone  Signal = 0
	SignalEntry Signal = 1
	SignalExit  Signal = -1
)

// SignalFor returns the transition signal for a newly established position.
func SignalFor(p Position) Signal {
	return Signal(p)
}

func (s Signal) String() string {
	switch s {
	case SignalEntry:
		return "entry"
	case SignalExit:
		return "exit"
	default:
		return "none"
	}
}

// StrategyConfig holds the crossover strategy parameters.
type StrategyConfig struct {
	ShortWindow    int
	LongWindow     int
	InitialCapital float64
	ShareSize      float64
}

// DefaultStrategyConfig returns the stock 30/50 configuration with 10,000 capital and 50 shares.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		ShortWindow:    30,
		LongWindow:     50,
		InitialCapital: 10000,
		ShareSize:      50,
	}
}

// WithWindows returns a copy of the config using the given window sizes.
func (c StrategyConfig) WithWindows(short, long int) StrategyConfig {
	c.ShortWindow = short
	c.LongWindow = long
	return c
}

// Validate checks that all parameters are positive. A short window that is not
// shorter than the long window is allowed; it degenerates but still evaluates.
func (c StrategyConfig) Validate() error {
	if c.ShortWindow < 1 || c.LongWindow < 1 {
		return WrapError(ErrInvalidInput,
			fmt.Errorf("windows must be positive, got short=%d long=%d", c.ShortWindow, c.LongWindow))
	}
	if !(c.InitialCapital > 0) {
		return WrapError(ErrInvalidInput, fmt.Errorf("initial capital must be positive, got %v", c.InitialCapital))
	}
	if !(c.ShareSize > 0) {
		return WrapError(ErrInvalidInput, fmt.Errorf("share size must be positive, got %v", c.ShareSize))
	}
	return nil
}

// WarmUp returns the number of leading periods without both averages defined.
func (c StrategyConfig) WarmUp() int {
	return max(c.ShortWindow, c.LongWindow) - 1
}
