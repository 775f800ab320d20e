package backtest

import (
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
)

// openTrade is the pending state between an entry and its exit
type openTrade struct {
	row     returns.Row
	holding float64
}

// BuildLedger folds the entry/exit signals of a return frame into trade records.
//
// An entry opens a trade only when idle and an exit closes it only when a trade is
// open. An entry still open when the frame ends produces no record.
func BuildLedger(frame *returns.Frame, symbol string, shareSize float64) []TradeRecord {
	var trades []TradeRecord
	var open *openTrade

	for _, row := range frame.Rows {
		switch row.Signal {
		case core.SignalEntry:
			if open == nil {
				open = &openTrade{row: row, holding: shareSize * row.Close}
			}
		case core.SignalExit:
			if open != nil {
				exitHolding := shareSize * row.Close
				trades = append(trades, TradeRecord{
					Symbol:            symbol,
					EntryDate:         open.row.Time,
					ExitDate:          row.Time,
					Shares:            shareSize,
					EntryPrice:        open.row.Close,
					ExitPrice:         row.Close,
					EntryHoldingValue: open.holding,
					ExitHoldingValue:  exitHolding,
					ProfitLoss:        exitHolding - open.holding,
				})
				open = nil
			}
		}
	}

	return trades
}

// Summarize computes win/loss statistics for a ledger
func Summarize(trades []TradeRecord) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	var winning, losing int
	var total float64
	for _, t := range trades {
		total += t.ProfitLoss
		if t.IsWin() {
			winning++
		} else {
			losing++
		}
	}

	return Stats{
		TotalTrades:     len(trades),
		WinningTrades:   winning,
		LosingTrades:    losing,
		WinRate:         float64(winning) / float64(len(trades)) * 100,
		TotalProfitLoss: total,
	}
}
