// Package csvfile reads price history from local CSV files.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
)

// dateLayouts are tried in order for the date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// CSVFile treats Query.Symbol as a file path. Column names are matched
// case-insensitively; "date" and "close" are required.
type CSVFile struct {
	dir string
}

// New creates a new CSV file collector
func New() *CSVFile {
	return &CSVFile{}
}

func (c *CSVFile) Name() string {
	return "csv"
}

// Init reads the optional base directory from Extra["dir"]; relative paths resolve against it.
func (c *CSVFile) Init(cfg collector.Config) error {
	if dir, ok := cfg.Extra["dir"].(string); ok {
		c.dir = dir
	}
	return nil
}

func (c *CSVFile) FetchHistory(ctx context.Context, q collector.Query) ([]core.OHLCV, error) {
	if q.Symbol == "" {
		return nil, core.WrapError(core.ErrCollectorFailed, errors.New("file path cannot be empty"))
	}
	path := q.Symbol
	if c.dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	defer f.Close()

	bars, err := Parse(f, symbolFromPath(path), q.Interval)
	if err != nil {
		return nil, err
	}

	bars = filterRange(bars, q.Start, q.End)
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no rows in %s", path))
	}
	return bars, ctx.Err()
}

// Parse decodes CSV rows in file order. Rows without a close are dropped.
// A "ticker" column, when present, overrides the fallback symbol.
func Parse(r io.Reader, symbol, interval string) ([]core.OHLCV, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("reading header: %w", err))
	}
	cols := indexColumns(header)

	dateCol, ok := lookup(cols, "date", "datetime", "timestamp", "time")
	if !ok {
		return nil, core.WrapError(core.ErrCollectorFailed, errors.New("missing date column"))
	}
	closeCol, ok := lookup(cols, "close", "adj close", "adj_close")
	if !ok {
		return nil, core.WrapError(core.ErrCollectorFailed, errors.New("missing close column"))
	}
	tickerCol, hasTicker := lookup(cols, "ticker", "symbol")

	var bars []core.OHLCV
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("line %d: %w", line, err))
		}

		closeStr := field(record, closeCol)
		if closeStr == "" {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("line %d: close %q: %w", line, closeStr, err))
		}
		ts, err := parseTime(field(record, dateCol))
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("line %d: %w", line, err))
		}

		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     optional(record, cols, closePrice, "open"),
			High:     optional(record, cols, closePrice, "high"),
			Low:      optional(record, cols, closePrice, "low"),
			Close:    closePrice,
			Volume:   int64(optional(record, cols, 0, "volume")),
			Time:     ts,
		}
		if hasTicker {
			if t := field(record, tickerCol); t != "" {
				bar.Symbol = t
			}
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

func lookup(cols map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

func optional(record []string, cols map[string]int, fallback float64, name string) float64 {
	i, ok := cols[name]
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(field(record, i), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func symbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func filterRange(bars []core.OHLCV, start, end time.Time) []core.OHLCV {
	if start.IsZero() && end.IsZero() {
		return bars
	}
	out := bars[:0]
	for _, b := range bars {
		if !start.IsZero() && b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
