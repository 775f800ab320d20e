// Package optimizer runs a brute-force search over short/long window pairs.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/newthinker/smacross/internal/core"
	"github.com/newthinker/smacross/internal/returns"
	"github.com/newthinker/smacross/internal/strategy/ma_crossover"
	"golang.org/x/sync/errgroup"
)

// Point is the outcome of one grid evaluation.
type Point struct {
	Short       int
	Long        int
	Performance float64
	Scored      bool // false when no row survived warm-up
}

// Result is the best grid point found.
type Result struct {
	Short       int     `json:"short_window" yaml:"short_window"`
	Long        int     `json:"long_window" yaml:"long_window"`
	Performance float64 `json:"performance" yaml:"performance"`
	Evaluated   int     `json:"evaluated" yaml:"evaluated"`
	Skipped     int     `json:"skipped" yaml:"skipped"`
}

// Rounded returns the result with performance rounded to cents.
func (r Result) Rounded() Result {
	r.Performance = returns.Round2(r.Performance)
	return r
}

type options struct {
	workers  int
	timeout  time.Duration
	observer func(Point)
}

// Option configures Optimize.
type Option func(*options)

// WithWorkers bounds the number of concurrent evaluations. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithTimeout sets a deadline around the whole search.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithObserver is called once per evaluated point, possibly from several goroutines.
func WithObserver(fn func(Point)) Option {
	return func(o *options) { o.observer = fn }
}

// Optimize evaluates every (short, long) pair of the grid and returns the one with
// the highest final strategy capital.
//
// Each point is computed from scratch from (series, short, long, cfg), so points can
// run in any order and in parallel. Ties keep the lexicographically smallest pair,
// which is the first one met in a row-major scan. Pairs with short >= long are
// evaluated like any other point.
func Optimize(ctx context.Context, series core.PriceSeries, shortRange, longRange Range, cfg core.StrategyConfig, opts ...Option) (Result, error) {
	o := options{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	if err := shortRange.Validate(); err != nil {
		return Result{}, fmt.Errorf("short range: %w", err)
	}
	if err := longRange.Validate(); err != nil {
		return Result{}, fmt.Errorf("long range: %w", err)
	}
	if err := series.Validate(); err != nil {
		return Result{}, err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	grid := buildGrid(shortRange.Values(), longRange.Values())
	points := make([]Point, len(grid))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, p := range grid {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pt, err := Evaluate(series, p[0], p[1], cfg)
			if err != nil {
				return err
			}
			points[i] = pt
			if o.observer != nil {
				o.observer(pt)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return reduce(points)
}

// Evaluate scores a single window pair.
func Evaluate(series core.PriceSeries, short, long int, cfg core.StrategyConfig) (Point, error) {
	signals, err := ma_crossover.Compute(series, short, long)
	if err != nil {
		return Point{}, err
	}
	frame, err := returns.Compute(series, signals, cfg.WithWindows(short, long))
	if err != nil {
		return Point{}, err
	}
	return Point{
		Short:       short,
		Long:        long,
		Performance: frame.Performance(),
		Scored:      !frame.Empty(),
	}, nil
}

func buildGrid(shorts, longs []int) [][2]int {
	grid := make([][2]int, 0, len(shorts)*len(longs))
	for _, s := range shorts {
		for _, l := range longs {
			grid = append(grid, [2]int{s, l})
		}
	}
	return grid
}

// reduce picks the best scored point in grid order; only a strictly greater
// performance replaces the incumbent.
func reduce(points []Point) (Result, error) {
	var res Result
	found := false
	for _, p := range points {
		if !p.Scored {
			res.Skipped++
			continue
		}
		res.Evaluated++
		if !found || p.Performance > res.Performance {
			res.Short, res.Long, res.Performance = p.Short, p.Long, p.Performance
			found = true
		}
	}
	if !found {
		return res, core.WrapError(core.ErrInsufficientData,
			errors.New("no grid point has enough history to score"))
	}
	return res, nil
}
