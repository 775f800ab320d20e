package backtest

import (
	"fmt"
	"math"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
)

// TradingPeriods is the annualization constant. It is applied whatever the bar
// interval is, so hourly series are annualized as if they were daily.
const TradingPeriods = 252

// Evaluate reduces a return frame into annualized performance ratios.
//
// Ratios whose denominator is zero are reported as +Inf or -Inf following the sign of
// the numerator, and NaN when the numerator is zero too. A standard deviation over a
// single row is undefined (NaN). An empty frame fails with ErrInsufficientData.
func Evaluate(frame *returns.Frame) (Summary, error) {
	if frame == nil || frame.Empty() {
		return Summary{}, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("no eligible rows after warm-up"))
	}

	strat := frame.StrategyReturns()
	market := frame.MarketReturns()

	annualFactor := math.Sqrt(TradingPeriods)
	annualReturn := mean(strat) * TradingPeriods
	downside, hasDownside := downsideDeviation(strat)

	return Summary{
		CumulativeReturn: frame.Performance(),
		AnnualReturn:     annualReturn,
		AnnualVolatility: stdDev(market) * annualFactor,
		SharpeRatio:      ratio(annualReturn, stdDev(strat)*annualFactor),
		SortinoRatio:     ratio(annualReturn, downside*annualFactor),
		MaxDrawdown:      calculateMaxDrawdown(frame.StrategyValues()) * 100,
		HasDownside:      hasDownside,
		Periods:          frame.Len(),
	}, nil
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of a value curve
func calculateMaxDrawdown(values []float64) float64 {
	var maxDD, peak float64

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// downsideDeviation is the root mean square of the negative returns, counting
// non-negative periods as zero.
func downsideDeviation(rs []float64) (float64, bool) {
	var sum float64
	var any bool
	for _, r := range rs {
		if r < 0 {
			sum += r * r
			any = true
		}
	}
	return math.Sqrt(sum / float64(len(rs))), any
}

func mean(rs []float64) float64 {
	var sum float64
	for _, r := range rs {
		sum += r
	}
	return sum / float64(len(rs))
}

// stdDev is the sample standard deviation (n-1)
func stdDev(rs []float64) float64 {
	if len(rs) < 2 {
		return math.NaN()
	}
	m := mean(rs)
	var variance float64
	for _, r := range rs {
		variance += (r - m) * (r - m)
	}
	return math.Sqrt(variance / float64(len(rs)-1))
}

func ratio(num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	if den == 0 {
		switch {
		case num > 0:
			return math.Inf(1)
		case num < 0:
			return math.Inf(-1)
		default:
			return math.NaN()
		}
	}
	return num / den
}
