package backtest

import (
	"time"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
	"github.com/newthinker/smacross/internal/strategy/ma_crossover"
)

// Result holds the complete backtest output
type Result struct {
	RunID      string
	Symbol     string
	Config     core.StrategyConfig
	StartDate  time.Time
	EndDate    time.Time
	Series     core.PriceSeries // the evaluated input
	Signals    *ma_crossover.Frame
	Returns    *returns.Frame
	Summary    Summary
	Trades     []TradeRecord
	TradeStats Stats
	Report     returns.Report
}

// Summary holds the annualized evaluation of a return frame
type Summary struct {
	CumulativeReturn float64 `json:"cumulative_return" yaml:"cumulative_return"`
	AnnualReturn     float64 `json:"annual_return" yaml:"annual_return"`
	AnnualVolatility float64 `json:"annual_volatility" yaml:"annual_volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	SortinoRatio     float64 `json:"sortino_ratio" yaml:"sortino_ratio"` // +Inf when no period lost money
	MaxDrawdown      float64 `json:"max_drawdown" yaml:"max_drawdown"`   // Percentage
	HasDownside      bool    `json:"has_downside" yaml:"has_downside"`
	Periods          int     `json:"periods" yaml:"periods"`
}

// TradeRecord represents a completed entry to exit round trip
type TradeRecord struct {
	Symbol            string
	EntryDate         time.Time
	ExitDate          time.Time
	Shares            float64
	EntryPrice        float64
	ExitPrice         float64
	EntryHoldingValue float64
	ExitHoldingValue  float64
	ProfitLoss        float64
}

// Return is the fractional price change of the trade
func (t TradeRecord) Return() float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	return (t.ExitPrice - t.EntryPrice) / t.EntryPrice
}

// IsWin returns true if the trade was profitable
func (t TradeRecord) IsWin() bool {
	return t.ProfitLoss > 0
}

// Stats holds trade ledger statistics
type Stats struct {
	TotalTrades     int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades   int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades    int     `json:"losing_trades" yaml:"losing_trades"`
	WinRate         float64 `json:"win_rate" yaml:"win_rate"` // Percentage of profitable trades
	TotalProfitLoss float64 `json:"total_profit_loss" yaml:"total_profit_loss"`
}
