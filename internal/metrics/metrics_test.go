package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/model"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

// value returns the single sample of the named metric family.
func value(t *testing.T, m *Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		require.Len(t, f.GetMetric(), 1)
		s := f.GetMetric()[0]
		switch {
		case s.GetGauge() != nil:
			return s.GetGauge().GetValue()
		case s.GetCounter() != nil:
			return s.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestObserveSnapshot(t *testing.T) {
	m := New()
	snap := &model.Snapshot{
		Records: []model.Record{{InstrumentID: "1617"}, {InstrumentID: "1618"}},
		TopN:    []string{"1617"},
		Failures: []model.PartialFailure{
			{InstrumentID: "1619", Kind: model.FailureDataUnavailable},
			{InstrumentID: "1620", Kind: model.FailureDataUnavailable},
		},
		GeneratedAt: time.Unix(1717142400, 0).UTC(),
	}
	m.ObserveSnapshot(snap)

	assert.Equal(t, 1.0, value(t, m, "sectorpulse_hot_instruments"))
	assert.Equal(t, 2.0, value(t, m, "sectorpulse_instruments"))
	assert.Equal(t, 1717142400.0, value(t, m, "sectorpulse_last_run_timestamp_seconds"))
	assert.Equal(t, 2.0, value(t, m, "sectorpulse_partial_failures_total"))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RunsTotal.WithLabelValues("ok").Inc()
	assert.Contains(t, scrape(t, m), `sectorpulse_runs_total{result="ok"} 1`)
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.FetchErrors.Inc()
	assert.Equal(t, 1.0, value(t, a, "sectorpulse_fetch_errors_total"))
	assert.Equal(t, 0.0, value(t, b, "sectorpulse_fetch_errors_total"))
}
