// Package report renders backtest and optimization results as CSV tables and
// JSON or YAML summaries, and archives them per run.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/storage/archive"
	"go.uber.org/zap"
)

// Exporter writes run artifacts under "<prefix>/<run id>/"
type Exporter struct {
	store  archive.Storage
	format string
	prefix string
	logger *zap.Logger
}

// NewExporter creates an exporter. Format is "json" or "yaml".
func NewExporter(store archive.Storage, format string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if format == "" {
		format = FormatJSON
	}
	return &Exporter{
		store:  store,
		format: format,
		prefix: "runs",
		logger: logger,
	}
}

// ExportBacktest archives the signal, return, holdings and trade tables plus the summary.
// It returns the written keys.
func (e *Exporter) ExportBacktest(ctx context.Context, r *backtest.Result) ([]string, error) {
	summary, err := Encode(e.format, NewBacktestSummary(r))
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name   string
		render func(io.Writer) error
	}{
		{"signals.csv", func(w io.Writer) error { return WriteSignals(w, r.Signals) }},
		{"returns.csv", func(w io.Writer) error { return WriteReturns(w, r.Returns) }},
		{"holdings.csv", func(w io.Writer) error { return WriteHoldings(w, r.Returns.Holdings(r.Config.ShareSize)) }},
		{"trades.csv", func(w io.Writer) error { return WriteTrades(w, r.Trades) }},
	}

	var keys []string
	for _, a := range artifacts {
		var buf bytes.Buffer
		if err := a.render(&buf); err != nil {
			return keys, fmt.Errorf("rendering %s: %w", a.name, err)
		}
		key, err := e.write(ctx, r.RunID, a.name, buf.Bytes())
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	key, err := e.write(ctx, r.RunID, "summary."+e.format, summary)
	if err != nil {
		return keys, err
	}
	keys = append(keys, key)

	e.logger.Info("exported backtest",
		zap.String("run_id", r.RunID),
		zap.Int("artifacts", len(keys)),
	)
	return keys, nil
}

// ExportOptimization archives the optimization summary.
func (e *Exporter) ExportOptimization(ctx context.Context, r *backtest.OptimizeResult) (string, error) {
	data, err := Encode(e.format, NewOptimizeSummary(r))
	if err != nil {
		return "", err
	}
	key, err := e.write(ctx, r.RunID, "optimization."+e.format, data)
	if err != nil {
		return "", err
	}

	e.logger.Info("exported optimization", zap.String("run_id", r.RunID), zap.String("key", key))
	return key, nil
}

func (e *Exporter) write(ctx context.Context, runID, name string, data []byte) (string, error) {
	key := path.Join(e.prefix, runID, name)
	if err := e.store.Write(ctx, key, data); err != nil {
		return "", fmt.Errorf("archiving %s: %w", key, err)
	}
	return key, nil
}
