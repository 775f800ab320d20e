package ma_crossover

import (
	"fmt"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/indicator"
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	shortWindow int
	longWindow  int
}

// New creates a new MA Crossover strategy
func New(shortWindow, longWindow int) *MACrossover {
	return &MACrossover{
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}
}

func (m *MACrossover) Name() string {
	return "ma_crossover"
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("SMA Crossover (%d/%d)", m.shortWindow, m.longWindow)
}

// Windows returns the configured short and long windows.
func (m *MACrossover) Windows() (short, long int) {
	return m.shortWindow, m.longWindow
}

// Compute derives the signal frame for the configured windows.
func (m *MACrossover) Compute(series core.PriceSeries) (*Frame, error) {
	return Compute(series, m.shortWindow, m.longWindow)
}

// Compute derives short/long SMAs, positions and transition signals.
//
// The position is long when the short average is strictly above the long one and
// short otherwise, so equal averages resolve short. A signal is raised on a row whose
// position differs from the previous row's position; the first defined row has no
// predecessor and carries no signal. A series shorter than the longest window yields
// an all-undefined frame rather than an error.
func Compute(series core.PriceSeries, shortWindow, longWindow int) (*Frame, error) {
	if shortWindow < 1 || longWindow < 1 {
		return nil, core.WrapError(core.ErrInvalidInput,
			fmt.Errorf("windows must be positive, got short=%d long=%d", shortWindow, longWindow))
	}

	closes := series.Closes()
	shortMA := indicator.RollingSMA(closes, shortWindow)
	longMA := indicator.RollingSMA(closes, longWindow)

	frame := &Frame{
		Symbol:      series.Symbol,
		ShortWindow: shortWindow,
		LongWindow:  longWindow,
		Rows:        make([]Row, len(closes)),
	}

	prev := core.PositionUndefined
	for i, bar := range series.Bars {
		row := Row{
			Time:    bar.Time,
			Close:   bar.Close,
			ShortMA: shortMA[i],
			LongMA:  longMA[i],
		}

		if row.Defined() {
			row.Position = positionFor(row.ShortMA.Float64, row.LongMA.Float64)
			if prev.Defined() && row.Position != prev {
				row.Signal = core.SignalFor(row.Position)
			}
			prev = row.Position
		}

		frame.Rows[i] = row
	}

	return frame, nil
}

func positionFor(shortMA, longMA float64) core.Position {
	if shortMA > longMA {
		return core.PositionLong
	}
	return core.PositionShort
}
