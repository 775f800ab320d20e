package returns

import (
	"time"

	"github.com/newthinker/smacross/internal/core"
)

// HoldingRow is the share portfolio on one period.
type HoldingRow struct {
	Time     time.Time
	Shares   float64
	Holdings float64 // shares * close
	Cash     float64
	Total    float64
}

// Holdings replays the entry/exit signals as a long-only share portfolio: buy
// shareSize shares on entry, sell them on exit, start flat with the initial capital.
func (f *Frame) Holdings(shareSize float64) []HoldingRow {
	out := make([]HoldingRow, len(f.Rows))
	cash := f.InitialCapital
	var held float64

	for i, r := range f.Rows {
		switch {
		case r.Signal == core.SignalEntry && held == 0:
			held = shareSize
			cash -= held * r.Close
		case r.Signal == core.SignalExit && held > 0:
			cash += held * r.Close
			held = 0
		}
		holdings := held * r.Close
		out[i] = HoldingRow{
			Time:     r.Time,
			Shares:   held,
			Holdings: holdings,
			Cash:     cash,
			Total:    cash + holdings,
		}
	}
	return out
}
