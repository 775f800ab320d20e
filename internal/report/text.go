package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/storage/runs"
)

// PrintBacktest writes the rounded performance and edge, optionally followed by the trade ledger.
func PrintBacktest(w io.Writer, r *backtest.Result, withTrades bool) error {
	if _, err := fmt.Fprintf(w, "Performance: %.2f\nEdge: %.2f\n", r.Report.Performance, r.Report.Edge); err != nil {
		return err
	}
	if !withTrades {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tEXIT\tSHARES\tENTRY PRICE\tEXIT PRICE\tP&L")
	for _, t := range r.Trades {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\n",
			t.EntryDate.Format("2006-01-02 15:04"), t.ExitDate.Format("2006-01-02 15:04"),
			t.Shares, t.EntryPrice, t.ExitPrice, t.ProfitLoss)
	}
	s := r.TradeStats
	fmt.Fprintf(tw, "\nTrades: %d\tWins: %d\tLosses: %d\tWin rate: %.1f%%\tTotal P&L: %.2f\n",
		s.TotalTrades, s.WinningTrades, s.LosingTrades, s.WinRate, s.TotalProfitLoss)
	return tw.Flush()
}

// PrintOptimization writes the best window pair and its rounded score.
func PrintOptimization(w io.Writer, r *backtest.OptimizeResult) error {
	best := r.Best.Rounded()
	_, err := fmt.Fprintf(w, "Best short window: %d\nBest long window: %d\nPerformance: %.2f\nEvaluated: %d (skipped %d)\n",
		best.Short, best.Long, best.Performance, best.Evaluated, best.Skipped)
	return err
}

// PrintRuns writes recorded runs as a table.
func PrintRuns(w io.Writer, rs []runs.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSYMBOL\tSHORT\tLONG\tPERFORMANCE\tEDGE\tTRADES\tCREATED")
	for _, r := range rs {
		edge := "-"
		if r.Kind == runs.KindBacktest {
			edge = fmt.Sprintf("%.2f", r.Edge)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%s\t%d\t%s\n",
			r.ID, r.Kind, r.Symbol, r.ShortWindow, r.LongWindow, r.Performance, edge, r.Trades,
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
