package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/core"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists runs to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug("run database opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			kind            TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			short_window    INTEGER NOT NULL,
			long_window     INTEGER NOT NULL,
			initial_capital REAL,
			share_size      REAL,
			performance     REAL,
			edge            REAL,
			sharpe_ratio    REAL,
			sortino_ratio   REAL,
			trades          INTEGER,
			evaluated       INTEGER,
			start_date      INTEGER,
			end_date        INTEGER,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol, created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordBacktest(ctx context.Context, res *backtest.Result) error {
	return r.insert(ctx, FromBacktest(res))
}

func (r *SQLiteRecorder) RecordOptimization(ctx context.Context, res *backtest.OptimizeResult, cfg RunConfig) error {
	return r.insert(ctx, FromOptimization(res, cfg))
}

func (r *SQLiteRecorder) insert(ctx context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs
		(id, kind, symbol, short_window, long_window, initial_capital, share_size,
		 performance, edge, sharpe_ratio, sortino_ratio, trades, evaluated,
		 start_date, end_date, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Kind, run.Symbol, run.ShortWindow, run.LongWindow,
		run.InitialCapital, run.ShareSize, run.Performance, run.Edge,
		nullable(run.SharpeRatio), nullable(run.SortinoRatio), run.Trades, run.Evaluated,
		unixOrZero(run.StartDate), unixOrZero(run.EndDate), r.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	r.logger.Debug("run recorded", zap.String("run_id", run.ID), zap.String("kind", run.Kind))
	return nil
}

const selectRun = `SELECT id, kind, symbol, short_window, long_window, initial_capital, share_size,
	performance, edge, sharpe_ratio, sortino_ratio, trades, evaluated,
	start_date, end_date, created_at FROM runs`

// Get returns a run by id, or ErrRunNotFound.
func (r *SQLiteRecorder) Get(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", id))
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. An empty symbol matches all symbols.
func (r *SQLiteRecorder) List(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := selectRun + ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args := []any{limit}
	if symbol != "" {
		query = selectRun + ` WHERE symbol = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`
		args = []any{symbol, limit}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var sharpe, sortino sql.NullFloat64
	var start, end, created int64
	err := s.Scan(&run.ID, &run.Kind, &run.Symbol, &run.ShortWindow, &run.LongWindow,
		&run.InitialCapital, &run.ShareSize, &run.Performance, &run.Edge,
		&sharpe, &sortino, &run.Trades, &run.Evaluated, &start, &end, &created)
	if err != nil {
		return nil, err
	}

	run.SharpeRatio = fromNullable(sharpe)
	run.SortinoRatio = fromNullable(sortino)
	run.StartDate = fromUnix(start)
	run.EndDate = fromUnix(end)
	run.CreatedAt = time.Unix(created, 0).UTC()
	return &run, nil
}

// SQLite has no NaN; undefined ratios are stored as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
