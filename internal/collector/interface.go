package collector

import (
	"context"
	"time"

	"github.com/newthinker/smacross/internal/core"
)

// Config holds collector configuration
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    uint64
	RatePerSecond float64
	Extra         map[string]any
}

// Query selects the history to fetch. A non-zero Start/End takes precedence over Period.
type Query struct {
	Symbol   string // ticker, or file path for file-backed collectors
	Period   string // "1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"
	Interval string // "1m", "5m", "1h", "1d", ...
	Start    time.Time
	End      time.Time
}

// HasRange reports whether explicit dates were given.
func (q Query) HasRange() bool {
	return !q.Start.IsZero() || !q.End.IsZero()
}

// Collector defines the interface for historical data collectors
type Collector interface {
	// Metadata
	Name() string

	// Lifecycle
	Init(cfg Config) error

	// Data fetching
	FetchHistory(ctx context.Context, q Query) ([]core.OHLCV, error)
}
