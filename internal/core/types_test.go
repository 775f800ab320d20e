package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func bars(closes ...float64) []OHLCV {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]OHLCV, len(closes))
	for i, c := range closes {
		out[i] = OHLCV{Symbol: "UPS", Interval: "1d", Close: c, Time: base.AddDate(0, 0, i)}
	}
	return out
}

func TestNewPriceSeries(t *testing.T) {
	s := NewPriceSeries(bars(10, 11, 12))
	if s.Symbol != "UPS" || s.Interval != "1d" {
		t.Errorf("Symbol/Interval = %s/%s, want UPS/1d", s.Symbol, s.Interval)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	closes := s.Closes()
	if closes[2] != 12 {
		t.Errorf("Closes()[2] = %v, want 12", closes[2])
	}
}

func TestPriceSeries_Validate(t *testing.T) {
	unsorted := bars(10, 11, 12)
	unsorted[1].Time, unsorted[2].Time = unsorted[2].Time, unsorted[1].Time

	duplicate := bars(10, 11)
	duplicate[1].Time = duplicate[0].Time

	missing := bars(10, 11)
	missing[1].Close = math.NaN()

	tests := []struct {
		name    string
		series  PriceSeries
		wantErr bool
	}{
		{"valid", NewPriceSeries(bars(10, 11, 12)), false},
		{"empty", PriceSeries{}, true},
		{"unsorted", NewPriceSeries(unsorted), true},
		{"duplicate timestamp", NewPriceSeries(duplicate), true},
		{"missing close", NewPriceSeries(missing), true},
		{"zero close", NewPriceSeries(bars(10, 0)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPriceSeries_ValidateDoesNotReorder(t *testing.T) {
	b := bars(10, 11, 12)
	b[0].Time, b[2].Time = b[2].Time, b[0].Time
	s := NewPriceSeries(b)
	_ = s.Validate()
	if s.Bars[0].Close != 10 || s.Bars[2].Close != 12 {
		t.Error("Validate must not reorder bars")
	}
}

func TestNullFloat(t *testing.T) {
	var undef NullFloat
	if undef.Valid {
		t.Error("zero value should be undefined")
	}
	if undef.String() != "" {
		t.Errorf("undefined String() = %q, want empty", undef.String())
	}
	v := Some(11.5)
	if !v.Valid || v.Float64 != 11.5 {
		t.Errorf("Some(11.5) = %+v", v)
	}
}

func TestPosition(t *testing.T) {
	tests := []struct {
		p       Position
		defined bool
		f       float64
		s       string
	}{
		{PositionLong, true, 1, "long"},
		{PositionShort, true, -1, "short"},
		{PositionUndefined, false, 0, "undefined"},
	}
	for _, tt := range tests {
		if tt.p.Defined() != tt.defined {
			t.Errorf("%v.Defined() = %v, want %v", tt.p, tt.p.Defined(), tt.defined)
		}
		if tt.p.Float() != tt.f {
			t.Errorf("%v.Float() = %v, want %v", tt.p, tt.p.Float(), tt.f)
		}
		if tt.p.String() != tt.s {
			t.Errorf("String() = %s, want %s", tt.p.String(), tt.s)
		}
	}
}

func TestStrategyConfig_Defaults(t *testing.T) {
	cfg := DefaultStrategyConfig()
	if cfg.ShortWindow != 30 || cfg.LongWindow != 50 {
		t.Errorf("windows = %d/%d, want 30/50", cfg.ShortWindow, cfg.LongWindow)
	}
	if cfg.InitialCapital != 10000 || cfg.ShareSize != 50 {
		t.Errorf("capital/shares = %v/%v, want 10000/50", cfg.InitialCapital, cfg.ShareSize)
	}
	if cfg.WarmUp() != 49 {
		t.Errorf("WarmUp() = %d, want 49", cfg.WarmUp())
	}
}

func TestStrategyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StrategyConfig
		wantErr bool
	}{
		{"default", DefaultStrategyConfig(), false},
		{"short equals long", DefaultStrategyConfig().WithWindows(5, 5), false},
		{"short above long", DefaultStrategyConfig().WithWindows(9, 3), false},
		{"zero window", DefaultStrategyConfig().WithWindows(0, 3), true},
		{"zero capital", StrategyConfig{ShortWindow: 2, LongWindow: 3, ShareSize: 1}, true},
		{"zero shares", StrategyConfig{ShortWindow: 2, LongWindow: 3, InitialCapital: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignalFor(t *testing.T) {
	if SignalFor(PositionLong) != SignalEntry {
		t.Error("flip to long should be an entry")
	}
	if SignalFor(PositionShort) != SignalExit {
		t.Error("flip to short should be an exit")
	}
	if SignalNone.String() != "none" || SignalEntry.String() != "entry" || SignalExit.String() != "exit" {
		t.Error("unexpected signal names")
	}
}
