package binance

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

	"github.com/newthinker/smacross/internal/collector"
	"github.com/newthinker/smacross/internal/core"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://api.binance.com"

	// pageLimit is the maximum number of klines Binance returns per request.
	pageLimit = 1000
)

// Quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

var validPair = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// NormalizeSymbol converts "btc", "BTC-USDT", "BTC/USDT" to "BTCUSDT".
// A bare base asset gets defaultQuote appended.
func NormalizeSymbol(input, defaultQuote string) string {
	if input == "" {
		return ""
	}

	s := strings.ToUpper(input)
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)

	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + strings.ToUpper(defaultQuote)
}

// Binance fetches spot klines from the Binance REST API
type Binance struct {
	client       *http.Client
	baseURL      string
	limiter      *rate.Limiter
	defaultQuote string
}

// New creates a new Binance collector
func New() *Binance {
	return &Binance{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:      baseURL,
		limiter:      rate.NewLimiter(rate.Limit(10), 1),
		defaultQuote: "USDT",
	}
}

// WithTransport sets the HTTP transport.
func (b *Binance) WithTransport(rt http.RoundTripper) *Binance {
	b.client.Transport = rt
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

func (b *Binance) Init(cfg collector.Config) error {
	if cfg.BaseURL != "" {
		b.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		b.client.Timeout = cfg.Timeout
	}
	if cfg.RatePerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	if quote, ok := cfg.Extra["default_quote"].(string); ok && quote != "" {
		b.defaultQuote = quote
	}
	return nil
}

// FetchHistory pages through /api/v3/klines until the resolved window is covered.
func (b *Binance) FetchHistory(ctx context.Context, q collector.Query) ([]core.OHLCV, error) {
	symbol := NormalizeSymbol(q.Symbol, b.defaultQuote)
	if !validPair.MatchString(symbol) {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("invalid symbol format: %s", q.Symbol))
	}
	interval, err := b.toInterval(q.Interval)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}
	start, end, err := collector.Resolve(q, time.Now())
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, err)
	}

	var data []core.OHLCV
	cursor := start
	for {
		page, err := b.fetchPage(ctx, symbol, interval, cursor, end)
		if err != nil {
			return nil, core.WrapError(core.ErrCollectorFailed, err)
		}
		for _, k := range page {
			k.Symbol = symbol
			k.Interval = q.Interval
			data = append(data, k)
		}
		if len(page) < pageLimit {
			break
		}
		cursor = page[len(page)-1].Time.Add(time.Millisecond)
		if !cursor.Before(end) {
			break
		}
	}

	if len(data) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}
	return data, nil
}

func (b *Binance) fetchPage(ctx context.Context, symbol, interval string, start, end time.Time) ([]core.OHLCV, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	params.Set("limit", strconv.Itoa(pageLimit))
	endpoint := b.baseURL + "/api/v3/klines?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return parseKlines(klines), nil
}

// parseKlines converts the positional kline arrays. Prices arrive as strings.
func parseKlines(klines [][]any) []core.OHLCV {
	data := make([]core.OHLCV, 0, len(klines))
	for _, k := range klines {
		if len(k) < 6 {
			continue
		}

		openTime, _ := k[0].(float64)
		closePrice := parseField(k[4])
		if closePrice <= 0 {
			continue
		}

		data = append(data, core.OHLCV{
			Open:   parseField(k[1]),
			High:   parseField(k[2]),
			Low:    parseField(k[3]),
			Close:  closePrice,
			Volume: int64(parseField(k[5])),
			Time:   time.UnixMilli(int64(openTime)).UTC(),
		})
	}
	return data
}

func parseField(v any) float64 {
	s, _ := v.(string)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func (b *Binance) toInterval(interval string) (string, error) {
	switch interval {
	case "":
		return "1d", nil
	case "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M":
		return interval, nil
	case "60m":
		return "1h", nil
	case "1wk":
		return "1w", nil
	case "1mo":
		return "1M", nil
	default:
		return "", fmt.Errorf("unsupported interval: %s", interval)
	}
}
