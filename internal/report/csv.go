package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
	"github.com/newthinker/smacross/internal/strategy/ma_crossover"
)

const timeLayout = time.RFC3339

// WriteSignals writes one row per timestamp of the signal frame. Warm-up cells are empty.
func WriteSignals(w io.Writer, frame *ma_crossover.Frame) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"time", "close",
		"sma_" + strconv.Itoa(frame.ShortWindow), "sma_" + strconv.Itoa(frame.LongWindow),
		"position", "signal"})

	for _, r := range frame.Rows {
		cw.Write([]string{
			r.Time.Format(timeLayout),
			formatFloat(r.Close),
			r.ShortMA.String(),
			r.LongMA.String(),
			positionCell(r.Position),
			strconv.Itoa(int(r.Signal)),
		})
	}

	cw.Flush()
	return cw.Error()
}

// WriteReturns writes the return frame with both capital curves.
func WriteReturns(w io.Writer, frame *returns.Frame) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"time", "close", "position", "signal",
		"market_return", "strategy_return", "buy_hold_value", "strategy_value"})

	for _, r := range frame.Rows {
		cw.Write([]string{
			r.Time.Format(timeLayout),
			formatFloat(r.Close),
			positionCell(r.Position),
			strconv.Itoa(int(r.Signal)),
			formatFloat(r.MarketReturn),
			formatFloat(r.StrategyReturn),
			formatFloat(r.BuyHoldValue),
			formatFloat(r.StrategyValue),
		})
	}

	cw.Flush()
	return cw.Error()
}

// WriteHoldings writes the share portfolio curve.
func WriteHoldings(w io.Writer, rows []returns.HoldingRow) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"time", "shares", "holdings", "cash", "total"})

	for _, r := range rows {
		cw.Write([]string{
			r.Time.Format(timeLayout),
			formatFloat(r.Shares),
			formatFloat(r.Holdings),
			formatFloat(r.Cash),
			formatFloat(r.Total),
		})
	}

	cw.Flush()
	return cw.Error()
}

// WriteTrades writes the trade ledger.
func WriteTrades(w io.Writer, trades []backtest.TradeRecord) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"symbol", "entry_date", "exit_date", "shares", "entry_price", "exit_price",
		"entry_holding_value", "exit_holding_value", "profit_loss"})

	for _, t := range trades {
		cw.Write([]string{
			t.Symbol,
			t.EntryDate.Format(timeLayout),
			t.ExitDate.Format(timeLayout),
			formatFloat(t.Shares),
			formatFloat(t.EntryPrice),
			formatFloat(t.ExitPrice),
			formatFloat(t.EntryHoldingValue),
			formatFloat(t.ExitHoldingValue),
			formatFloat(t.ProfitLoss),
		})
	}

	cw.Flush()
	return cw.Error()
}

func positionCell(p core.Position) string {
	if !p.Defined() {
		return ""
	}
	return strconv.Itoa(int(p))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
