package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/model"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Records: []model.Record{
			{InstrumentID: "1625", Name: "Electric Appliances", RSI: model.Defined(74.31), PercentB: model.Defined(1.1),
				ChangePct: model.Defined(1.5), Labels: model.NewLabels(model.LabelOverheated, model.LabelUptrend)},
			{InstrumentID: "1631", Name: "Banks", RSI: model.Defined(25), PercentB: model.Undefined(model.MetricDegenerateWindow),
				ChangePct: model.Defined(-0.8), Labels: model.NewLabels(model.LabelOversold, model.LabelDowntrend)},
		},
		TopN:        []string{"1625"},
		Failures:    []model.PartialFailure{{InstrumentID: "1633", Kind: model.FailureDataUnavailable, Reason: "empty series"}},
		GeneratedAt: time.Date(2024, 5, 31, 8, 0, 0, 0, time.UTC),
	}
}

func TestFormatSnapshot(t *testing.T) {
	msg := FormatSnapshot(testSnapshot())

	assert.Contains(t, msg, "2024-05-31 08:00 UTC")
	assert.Contains(t, msg, "Instruments: 2 | Failed: 1")
	assert.Contains(t, msg, "1. 1625 Electric Appliances: RSI 74.3, %B 1.10, +1.50%")
	assert.Contains(t, msg, "Overheated: 1625")
	assert.Contains(t, msg, "Oversold: 1631")
	assert.Contains(t, msg, "1633 (empty series)")
}

func TestFormatSnapshot_EscapesHTML(t *testing.T) {
	snap := testSnapshot()
	snap.Records[0].Name = "Construction & Materials <Core>"
	snap.Failures[0].Reason = `fetch: status 502 <html> "bad gateway"`

	msg := FormatSnapshot(snap)
	assert.Contains(t, msg, "1625 Construction &amp; Materials &lt;Core&gt;:")
	assert.Contains(t, msg, "1633 (fetch: status 502 &lt;html&gt; &#34;bad gateway&#34;)")
	assert.NotContains(t, msg, "<Core>")
	assert.NotContains(t, msg, "<html>")
	assert.Contains(t, msg, "<b>Hot sectors:</b>", "markup of the template itself is kept")
}

func TestFormatHot_Empty(t *testing.T) {
	snap := testSnapshot()
	snap.TopN = nil
	assert.Contains(t, FormatHot(snap), "none")
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "n/a", formatMetric(model.Undefined(model.MetricInsufficientHistory), "%.1f"))
	assert.Equal(t, "-0.80", formatMetric(model.Defined(-0.8), "%.2f"))
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.APIBase = url
	n.Backoff = time.Millisecond
	return n
}

func TestSendWithRetry(t *testing.T) {
	var calls int32
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hello", 2))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSend_EscapedNameReachesTelegram(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	snap := testSnapshot()
	snap.Records[0].Name = "Construction & Materials"
	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), FormatHot(snap)))
	assert.Contains(t, got["text"], "Construction &amp; Materials")
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "hello", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestPoll_DispatchesCommands(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /hot "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/unknown"}}
			]}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	var seen []string
	next, err := n.poll(context.Background(), srv.Client(), 7, func(cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/hot" {
			return "hot list"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/hot", "/unknown"}, seen)
	assert.Equal(t, []string{"hot list"}, replies)
}
