package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
)

// frameOf builds a return frame from strategy and market log returns.
func frameOf(strat, market []float64) *returns.Frame {
	f := &returns.Frame{InitialCapital: 10000}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ss, ms float64
	for i := range strat {
		ss += strat[i]
		ms += market[i]
		f.Rows = append(f.Rows, returns.Row{
			Time:           base.AddDate(0, 0, i),
			Close:          100,
			MarketReturn:   market[i],
			StrategyReturn: strat[i],
			BuyHoldValue:   10000 * math.Exp(ms),
			StrategyValue:  10000 * math.Exp(ss),
		})
	}
	return f
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_KnownValues(t *testing.T) {
	strat := []float64{0.01, -0.01, 0.02}
	market := []float64{0.01, 0.01, -0.02}

	s, err := Evaluate(frameOf(strat, market))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	m := (0.01 - 0.01 + 0.02) / 3
	sd := math.Sqrt(((0.01-m)*(0.01-m) + (-0.01-m)*(-0.01-m) + (0.02-m)*(0.02-m)) / 2)
	down := math.Sqrt(0.0001 / 3)
	mm := 0.0
	msd := math.Sqrt(((0.01-mm)*(0.01-mm) + (0.01-mm)*(0.01-mm) + (-0.02-mm)*(-0.02-mm)) / 2)

	if !almostEqual(s.AnnualReturn, m*252) {
		t.Errorf("AnnualReturn = %v, want %v", s.AnnualReturn, m*252)
	}
	if !almostEqual(s.SharpeRatio, m*252/(sd*math.Sqrt(252))) {
		t.Errorf("SharpeRatio = %v, want %v", s.SharpeRatio, m*252/(sd*math.Sqrt(252)))
	}
	if !almostEqual(s.SortinoRatio, m*252/(down*math.Sqrt(252))) {
		t.Errorf("SortinoRatio = %v, want %v", s.SortinoRatio, m*252/(down*math.Sqrt(252)))
	}
	if !almostEqual(s.AnnualVolatility, msd*math.Sqrt(252)) {
		t.Errorf("AnnualVolatility = %v, want %v", s.AnnualVolatility, msd*math.Sqrt(252))
	}
	if !almostEqual(s.CumulativeReturn, 10000*math.Exp(0.02)) {
		t.Errorf("CumulativeReturn = %v, want %v", s.CumulativeReturn, 10000*math.Exp(0.02))
	}
	if !s.HasDownside {
		t.Error("HasDownside = false, want true")
	}
	if s.Periods != 3 {
		t.Errorf("Periods = %d, want 3", s.Periods)
	}
}

func TestEvaluate_NoDownsideGivesPositiveInfinity(t *testing.T) {
	s, err := Evaluate(frameOf([]float64{0.01, 0.02, 0.0}, []float64{0.01, 0.02, 0.0}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !math.IsInf(s.SortinoRatio, 1) {
		t.Errorf("SortinoRatio = %v, want +Inf", s.SortinoRatio)
	}
	if s.HasDownside {
		t.Error("HasDownside = true, want false")
	}
	if math.IsInf(s.SharpeRatio, 0) || math.IsNaN(s.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want finite", s.SharpeRatio)
	}
}

func TestEvaluate_ConstantPriceIsUndefined(t *testing.T) {
	s, err := Evaluate(frameOf([]float64{0, 0, 0, 0}, []float64{0, 0, 0, 0}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !math.IsNaN(s.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want NaN", s.SharpeRatio)
	}
	if !math.IsNaN(s.SortinoRatio) {
		t.Errorf("SortinoRatio = %v, want NaN", s.SortinoRatio)
	}
	if s.AnnualVolatility != 0 {
		t.Errorf("AnnualVolatility = %v, want 0", s.AnnualVolatility)
	}
	if s.CumulativeReturn != 10000 {
		t.Errorf("CumulativeReturn = %v, want 10000", s.CumulativeReturn)
	}
}

func TestEvaluate_SingleRow(t *testing.T) {
	s, err := Evaluate(frameOf([]float64{-0.01}, []float64{0.01}))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !math.IsNaN(s.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want NaN", s.SharpeRatio)
	}
	if !math.IsNaN(s.AnnualVolatility) {
		t.Errorf("AnnualVolatility = %v, want NaN", s.AnnualVolatility)
	}
	// Downside deviation is defined for one row.
	if !almostEqual(s.SortinoRatio, -0.01*252/(0.01*math.Sqrt(252))) {
		t.Errorf("SortinoRatio = %v", s.SortinoRatio)
	}
}

func TestEvaluate_EmptyFrame(t *testing.T) {
	_, err := Evaluate(&returns.Frame{InitialCapital: 10000})
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Evaluate(empty) error = %v, want ErrInsufficientData", err)
	}

	_, err = Evaluate(nil)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("Evaluate(nil) error = %v, want ErrInsufficientData", err)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"rising", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 0.25},
		{"deeper later", []float64{100, 90, 150, 75}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateMaxDrawdown(tt.values)
			if !almostEqual(got, tt.want) {
				t.Errorf("calculateMaxDrawdown() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den float64
		check    func(float64) bool
		desc     string
	}{
		{1, 2, func(v float64) bool { return v == 0.5 }, "0.5"},
		{1, 0, func(v float64) bool { return math.IsInf(v, 1) }, "+Inf"},
		{-1, 0, func(v float64) bool { return math.IsInf(v, -1) }, "-Inf"},
		{0, 0, math.IsNaN, "NaN"},
		{1, math.NaN(), math.IsNaN, "NaN"},
	}

	for _, tt := range tests {
		got := ratio(tt.num, tt.den)
		if !tt.check(got) {
			t.Errorf("ratio(%v, %v) = %v, want %s", tt.num, tt.den, got, tt.desc)
		}
	}
}
