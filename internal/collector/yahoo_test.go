package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// Three sessions of 1617.T, 09:00 JST; the middle one has a null close.
const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"1617.T","gmtoffset":32400},
  "timestamp":[1706659200,1706745600,1706832000],
  "indicators":{"quote":[{
    "open":[100.0,101.0,102.0],
    "high":[101.0,102.0,103.5],
    "low":[99.0,100.5,101.5],
    "close":[100.5,null,103.0],
    "volume":[12000,0,15000]
  }]}
}],"error":null}}`

func newTestFetcher(url string) *YahooFetcher {
	f := NewYahooFetcher(YahooOptions{BaseURL: url, TickerSuffix: ".T", MaxRetries: 2, Logger: zerolog.Nop()})
	f.Backoff = time.Millisecond
	f.Limiter = rate.NewLimiter(rate.Inf, 1)
	return f
}

func TestParseChart(t *testing.T) {
	pts, err := parseChart([]byte(chartBody))
	require.NoError(t, err)
	require.Len(t, pts, 2)

	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), pts[0].Date)
	assert.Equal(t, 100.5, pts[0].Close)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), pts[1].Date)
	assert.Equal(t, 103.5, pts[1].High)
	assert.Equal(t, 15000.0, pts[1].Volume)
}

func TestParseChart_APIError(t *testing.T) {
	_, err := parseChart([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestFetchDailyBars(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	pts, err := newTestFetcher(srv.URL).FetchDailyBars(context.Background(), "1617", 1)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 103.0, pts[0].Close)
	assert.True(t, strings.HasPrefix(path, "/v8/finance/chart/1617.T?"), path)
	assert.Contains(t, path, "interval=1d")
}

func TestFetchDailyBars_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	pts, err := newTestFetcher(srv.URL).FetchDailyBars(context.Background(), "1617", 300)
	require.NoError(t, err)
	assert.Len(t, pts, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDailyBars_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).FetchDailyBars(context.Background(), "9999", 300)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDailyBars_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(srv.URL).FetchDailyBars(context.Background(), "1617", 300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestYahooRange(t *testing.T) {
	assert.Equal(t, "1y", yahooRange(200))
	assert.Equal(t, "2y", yahooRange(400))
	assert.Equal(t, "5y", yahooRange(1000))
}
