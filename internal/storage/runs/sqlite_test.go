package runs

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/smacross/internal/backtest"
	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/optimizer"
	"github.com/newthinker/smacross/internal/returns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func backtestResult(id, symbol string) *backtest.Result {
	return &backtest.Result{
		RunID:     id,
		Symbol:    symbol,
		Config:    core.DefaultStrategyConfig(),
		StartDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Summary:   backtest.Summary{SharpeRatio: 1.25, SortinoRatio: math.NaN()},
		Trades:    []backtest.TradeRecord{{ProfitLoss: 10}, {ProfitLoss: -5}},
		Report:    returns.Report{Performance: 10500.12, Edge: -42.5},
	}
}

func TestRecorders_ImplementRecorder(t *testing.T) {
	var _ Recorder = (*SQLiteRecorder)(nil)
	var _ Recorder = (*NoopRecorder)(nil)
}

func TestSQLiteRecorder_RecordBacktest(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.RecordBacktest(ctx, backtestResult("run-1", "UPS")))

	got, err := r.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, KindBacktest, got.Kind)
	assert.Equal(t, "UPS", got.Symbol)
	assert.Equal(t, 30, got.ShortWindow)
	assert.Equal(t, 50, got.LongWindow)
	assert.Equal(t, 10000.0, got.InitialCapital)
	assert.Equal(t, 10500.12, got.Performance)
	assert.Equal(t, -42.5, got.Edge)
	assert.Equal(t, 1.25, got.SharpeRatio)
	assert.True(t, math.IsNaN(got.SortinoRatio), "NaN ratio round-trips through NULL")
	assert.Equal(t, 2, got.Trades)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got.StartDate)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteRecorder_RecordOptimization(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	res := &backtest.OptimizeResult{
		RunID:  "opt-1",
		Symbol: "UPS",
		Best:   optimizer.Result{Short: 21, Long: 48, Performance: 10987.654, Evaluated: 3600},
	}
	require.NoError(t, r.RecordOptimization(ctx, res, RunConfig{InitialCapital: 10000, ShareSize: 50}))

	got, err := r.Get(ctx, "opt-1")
	require.NoError(t, err)
	assert.Equal(t, KindOptimize, got.Kind)
	assert.Equal(t, 21, got.ShortWindow)
	assert.Equal(t, 48, got.LongWindow)
	assert.Equal(t, 10987.65, got.Performance)
	assert.Equal(t, 3600, got.Evaluated)
	assert.True(t, got.StartDate.IsZero())
	assert.True(t, math.IsNaN(got.SharpeRatio))
}

func TestSQLiteRecorder_GetMissing(t *testing.T) {
	r := newTestRecorder(t)

	_, err := r.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
}

func TestSQLiteRecorder_DuplicateID(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.RecordBacktest(ctx, backtestResult("run-1", "UPS")))
	assert.Error(t, r.RecordBacktest(ctx, backtestResult("run-1", "UPS")))
}

func TestSQLiteRecorder_List(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()

	clock := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	require.NoError(t, r.RecordBacktest(ctx, backtestResult("a", "UPS")))
	require.NoError(t, r.RecordBacktest(ctx, backtestResult("b", "MSFT")))
	require.NoError(t, r.RecordBacktest(ctx, backtestResult("c", "UPS")))

	all, err := r.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "most recent first")

	ups, err := r.List(ctx, "UPS", 10)
	require.NoError(t, err)
	require.Len(t, ups, 2)
	assert.Equal(t, []string{"c", "a"}, []string{ups[0].ID, ups[1].ID})

	one, err := r.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestSQLiteRecorder_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	r, err := NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	require.NoError(t, r.RecordBacktest(ctx, backtestResult("run-1", "UPS")))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Get(ctx, "run-1")
	assert.NoError(t, err)
}

func TestNoopRecorder(t *testing.T) {
	n := NewNoopRecorder()
	assert.NoError(t, n.RecordBacktest(context.Background(), backtestResult("x", "UPS")))
	assert.NoError(t, n.RecordOptimization(context.Background(), &backtest.OptimizeResult{}, RunConfig{}))
	assert.NoError(t, n.Close())
}
