package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
)

const sampleChart = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "UPS", "currency": "USD"},
      "timestamp": [1704196800, 1704283200, 1704369600, 1704456000],
      "indicators": {"quote": [{
        "open":   [150.1, 151.0, null, 153.2],
        "high":   [152.0, 153.5, null, 154.0],
        "low":    [149.5, 150.2, null, 152.1],
        "close":  [151.2, 152.8, null, 153.9],
        "volume": [1000, 1200, null, 900]
      }]}
    }],
    "error": null
  }
}`

func newTestYahoo(t *testing.T, handler http.HandlerFunc) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	y := New()
	if err := y.Init(collector.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, MaxRetries: 2, RatePerSecond: 100}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return y
}

func TestYahoo_ImplementsCollector(t *testing.T) {
	var _ collector.Collector = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New()
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	y := New()
	for _, tc := range tests {
		got := y.toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"UPS", "TSLA", "BRK-B", "0700.HK", "^GSPC"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%q) = %v, want nil", s, err)
		}
	}
	invalid := []string{"", "UPS/../x", "A B", "TOOLONGSYMBOL123.XX"}
	for _, s := range invalid {
		if err := validateSymbol(s); err == nil {
			t.Errorf("validateSymbol(%q) should fail", s)
		}
	}
}

func TestYahoo_FetchHistory_Period(t *testing.T) {
	var gotQuery string
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Path != "/UPS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(sampleChart))
	})

	bars, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "UPS", Period: "ytd", Interval: "1h"})
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}

	if gotQuery != "interval=1h&range=ytd" {
		t.Errorf("query = %q", gotQuery)
	}

	// The row with a null close is dropped.
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if bars[2].Close != 153.9 || bars[2].Volume != 900 {
		t.Errorf("unexpected last bar %+v", bars[2])
	}
	if bars[0].Symbol != "UPS" || bars[0].Interval != "1h" {
		t.Errorf("unexpected symbol/interval %s/%s", bars[0].Symbol, bars[0].Interval)
	}
	if err := core.NewPriceSeries(bars).Validate(); err != nil {
		t.Errorf("fetched bars should form a valid series: %v", err)
	}
}

func TestYahoo_FetchHistory_DateRange(t *testing.T) {
	var period1, period2 string
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		period1 = r.URL.Query().Get("period1")
		period2 = r.URL.Query().Get("period2")
		w.Write([]byte(sampleChart))
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "UPS", Start: from, End: to}); err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}
	if period1 != "1704067200" || period2 != "1706745600" {
		t.Errorf("period1/period2 = %s/%s", period1, period2)
	}
}

func TestYahoo_FetchHistory_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(sampleChart))
	})

	bars, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "UPS"})
	if err != nil {
		t.Fatalf("FetchHistory() error = %v", err)
	}
	if len(bars) != 3 {
		t.Errorf("expected 3 bars, got %d", len(bars))
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestYahoo_FetchHistory_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "NOPE"})
	if !errors.Is(err, core.ErrCollectorFailed) {
		t.Errorf("expected ErrCollectorFailed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single call, got %d", calls.Load())
	}
}

func TestYahoo_FetchHistory_ChartError(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "UPS"})
	if !errors.Is(err, core.ErrCollectorFailed) {
		t.Errorf("expected ErrCollectorFailed, got %v", err)
	}
}

func TestYahoo_FetchHistory_InvalidInput(t *testing.T) {
	y := New()
	if _, err := y.FetchHistory(context.Background(), collector.Query{Symbol: ""}); err == nil {
		t.Error("expected error for empty symbol")
	}
	if _, err := y.FetchHistory(context.Background(), collector.Query{Symbol: "UPS", Interval: "7m"}); err == nil {
		t.Error("expected error for unsupported interval")
	}
}
