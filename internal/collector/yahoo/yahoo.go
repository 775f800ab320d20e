package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
)

// validSymbol matches stock symbols like AAPL, UPS, BRK-B, 600519.SH, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9^][A-Za-z0-9\-]{0,9}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client     *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxRetries uint64
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		maxRetries: 3,
	}
}

// WithTransport sets the HTTP transport, e.g. an instrumented one.
func (y *Yahoo) WithTransport(rt http.RoundTripper) *Yahoo {
	y.client.Transport = rt
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Init(cfg collector.Config) error {
	if cfg.BaseURL != "" {
		y.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if cfg.RatePerSecond > 0 {
		y.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	y.maxRetries = cfg.MaxRetries
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchHistory fetches historical OHLCV data. Explicit dates are sent as
// period1/period2, otherwise the named period is passed as Yahoo's range.
func (y *Yahoo) FetchHistory(ctx context.Context, q collector.Query) ([]core.OHLCV, error) {
	if err := validateSymbol(q.Symbol); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	interval, err := y.toYahooInterval(q.Interval)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	params := url.Values{}
	params.Set("interval", interval)
	if q.HasRange() {
		start, end, err := collector.Resolve(q, time.Now())
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, err)
		}
		params.Set("period1", strconv.FormatInt(start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	} else {
		period := q.Period
		if period == "" {
			period = "ytd"
		}
		params.Set("range", period)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(q.Symbol)), params.Encode())

	var result chartResponse
	op := func() error {
		if err := y.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return y.get(ctx, endpoint, &result)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, y.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	return y.toOHLCV(q.Symbol, q.Interval, result)
}

func (y *Yahoo) get(ctx context.Context, endpoint string, out *chartResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "smacross/1.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (y *Yahoo) toOHLCV(symbol, interval string, result chartResponse) ([]core.OHLCV, error) {
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}

	r := result.Chart.Result[0]
	timestamps := r.Timestamp
	quotes := r.Indicators.Quote[0]

	data := make([]core.OHLCV, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(quotes.Close) || quotes.Close[i] == nil {
			continue // Skip missing data
		}
		closePrice := *quotes.Close[i]
		data = append(data, core.OHLCV{
			Symbol:   symbol,
			Interval: interval,
			Open:     valueOr(quotes.Open, i, closePrice),
			High:     valueOr(quotes.High, i, closePrice),
			Low:      valueOr(quotes.Low, i, closePrice),
			Close:    closePrice,
			Volume:   int64(valueOr(quotes.Volume, i, 0)),
			Time:     time.Unix(ts, 0).UTC(),
		})
	}

	return data, nil
}

func valueOr(values []*float64, i int, fallback float64) float64 {
	if i < len(values) && values[i] != nil {
		return *values[i]
	}
	return fallback
}

// toYahooInterval validates the bar interval against what the chart API accepts
func (y *Yahoo) toYahooInterval(interval string) (string, error) {
	switch interval {
	case "":
		return "1d", nil
	case "1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "5d", "1wk", "1mo", "3mo":
		return interval, nil
	default:
		return "", fmt.Errorf("unsupported interval: %s", interval)
	}
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}
