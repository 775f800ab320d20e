package indicator

import (
	"math"

	"github.com/newthinker/smacross/internal/core"
)

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
//
// The rolling sum is compensated, and a window whose prices are all equal
// yields that price exactly, so flat stretches give identical averages for any period.
func SMA(prices []float64, period int) []float64 {
	if period < 1 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum compensatedSum
	runStart := 0 // first index of the current run of equal prices
	for i, p := range prices {
		if i > 0 && p != prices[i-1] {
			runStart = i
		}
		sum.add(p)
		if i >= period {
			sum.add(-prices[i-period])
		}
		if i < period-1 {
			continue
		}

		if i-runStart+1 >= period {
			result = append(result, p)
		} else {
			result = append(result, sum.value()/float64(period))
		}
	}

	return result
}

// compensatedSum is a Kahan-Babuska (Neumaier) running sum. The compensation
// also holds when a large term leaves the window.
type compensatedSum struct {
	sum float64
	c   float64
}

func (k *compensatedSum) add(v float64) {
	t := k.sum + v
	if math.Abs(k.sum) >= math.Abs(v) {
		k.c += (k.sum - t) + v
	} else {
		k.c += (v - t) + k.sum
	}
	k.sum = t
}

func (k *compensatedSum) value() float64 {
	return k.sum + k.c
}

// RollingSMA returns the SMA aligned to prices: one cell per price, undefined
// for the first period-1 cells (and everywhere when there are fewer prices than period).
func RollingSMA(prices []float64, period int) []core.NullFloat {
	out := make([]core.NullFloat, len(prices))
	sma := SMA(prices, period)
	offset := len(prices) - len(sma)
	for i, v := range sma {
		out[offset+i] = core.Some(v)
	}
	return out
}
