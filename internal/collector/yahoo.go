package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"SectorPulse/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL      string
	TickerSuffix string // appended to instrument ids, ".T" for Tokyo listings
	MaxRetries   int
	Backoff      time.Duration
	Client       *http.Client
	Limiter      *rate.Limiter
	Logger       zerolog.Logger
}

// YahooOptions configures NewYahooFetcher.
type YahooOptions struct {
	BaseURL       string
	TickerSuffix  string
	ProxyURL      string
	RatePerSecond float64
	MaxRetries    int
	Logger        zerolog.Logger
}

// NewYahooFetcher creates a rate-limited Yahoo fetcher with optional proxy support.
func NewYahooFetcher(opts YahooOptions) *YahooFetcher {
	transport := &http.Transport{}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	perSec := opts.RatePerSecond
	if perSec <= 0 {
		perSec = 2
	}
	return &YahooFetcher{
		BaseURL:      opts.BaseURL,
		TickerSuffix: opts.TickerSuffix,
		MaxRetries:   opts.MaxRetries,
		Backoff:      time.Second,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		Logger:  opts.Logger,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent")

func yahooRange(days int) string {
	switch {
	case days <= 240:
		return "1y"
	case days <= 490:
		return "2y"
	default:
		return "5y"
	}
}

// FetchDailyBars downloads daily bars for symbol and trims them to days.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PricePoint, error) {
	ticker := symbol + f.TickerSuffix
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(ticker), yahooRange(days))

	body, err := f.getWithRetry(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	points, err := parseChart(body)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	if len(points) > days {
		points = points[len(points)-days:]
	}
	return points, nil
}

func (f *YahooFetcher) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= f.MaxRetries; i++ {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		body, err := f.get(ctx, u)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errPermanent) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		if i == f.MaxRetries {
			break
		}
		backoff := f.Backoff * time.Duration(1<<uint(i))
		f.Logger.Warn().Err(err).
			Int("attempt", i+1).
			Dur("backoff", backoff).
			Msg("yahoo request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", f.MaxRetries+1, lastErr)
}

func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %v: %w", err, errPermanent)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, fmt.Errorf("status %d, body: %s: %w", resp.StatusCode, truncate(body, 200), errPermanent)
	}
}

// parseChart extracts daily points from a chart API response. Bars with a
// null close (holidays, halted days) are skipped. Dates are the exchange's
// local calendar day, stored as UTC midnight.
func parseChart(body []byte) ([]model.PricePoint, error) {
	if desc := gjson.GetBytes(body, "chart.error.description"); desc.Exists() && desc.String() != "" {
		return nil, fmt.Errorf("api error: %s", desc.String())
	}
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("no chart result: %w", errPermanent)
	}
	zone := time.FixedZone("exchange", int(result.Get("meta.gmtoffset").Int()))

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	points := make([]model.PricePoint, 0, len(timestamps))
	for i, ts := range timestamps {
		c := at(closes, i)
		if c.Type == gjson.Null || c.Float() == 0 {
			continue
		}
		local := time.Unix(ts.Int(), 0).In(zone)
		points = append(points, model.PricePoint{
			Date:   time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Open:   at(opens, i).Float(),
			High:   at(highs, i).Float(),
			Low:    at(lows, i).Float(),
			Close:  c.Float(),
			Volume: at(volumes, i).Float(),
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	// the live session can show up twice; keep the later bar
	deduped := points[:0]
	for _, p := range points {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(p.Date) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}
	return deduped, nil
}

func at(values []gjson.Result, i int) gjson.Result {
	if i < len(values) {
		return values[i]
	}
	return gjson.Result{}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
