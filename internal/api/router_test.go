package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorPulse/internal/pipeline"
	"SectorPulse/internal/recorder"
)

const snapshotDoc = `{"records":[
 {"instrument_id":"1625","name":"Electric Appliances","rsi":75,"labels":["Overheated","Uptrend"],"rank":1},
 {"instrument_id":"1617","name":"Foods","rsi":null,"labels":["Neutral"],"rank":2},
 {"instrument_id":"1633","name":"Real Estate","rsi":72,"labels":["Overheated","Uptrend"],"rank":3}
],"top_n":["1625","1633"],"failures":[],"generated_at":"2024-05-31T08:00:00Z"}`

type fakeSource struct {
	data []byte
	err  error
}

func (f fakeSource) LatestJSON(context.Context) ([]byte, error) { return f.data, f.err }

type fakeTrigger struct{ err error }

func (f fakeTrigger) Run(context.Context) (*pipeline.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{RunID: "run-1"}, nil
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	r := NewRouter(fakeSource{}, nil, nil, zerolog.Nop())
	rec := do(t, r, "GET", "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"sectorpulse"}`, rec.Body.String())
}

func TestGetSnapshot(t *testing.T) {
	r := NewRouter(fakeSource{data: []byte(snapshotDoc)}, nil, nil, zerolog.Nop())
	rec := do(t, r, "GET", "/api/snapshot")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, snapshotDoc, rec.Body.String())
}

func TestGetSnapshot_Missing(t *testing.T) {
	r := NewRouter(fakeSource{err: recorder.ErrNoSnapshot}, nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/api/snapshot").Code)

	r = NewRouter(fakeSource{err: errors.New("db locked")}, nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusInternalServerError, do(t, r, "GET", "/api/snapshot/top").Code)
}

func TestGetTop(t *testing.T) {
	r := NewRouter(fakeSource{data: []byte(snapshotDoc)}, nil, nil, zerolog.Nop())
	rec := do(t, r, "GET", "/api/snapshot/top")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		GeneratedAt string `json:"generated_at"`
		TopN        []struct {
			InstrumentID string `json:"instrument_id"`
			Rank         int    `json:"rank"`
		} `json:"top_n"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2024-05-31T08:00:00Z", got.GeneratedAt)
	require.Len(t, got.TopN, 2)
	assert.Equal(t, "1625", got.TopN[0].InstrumentID)
	assert.Equal(t, "1633", got.TopN[1].InstrumentID)
	assert.Equal(t, 3, got.TopN[1].Rank)
}

func TestGetTop_Empty(t *testing.T) {
	doc := `{"records":[],"top_n":[],"failures":[],"generated_at":"2024-05-31T08:00:00Z"}`
	r := NewRouter(fakeSource{data: []byte(doc)}, nil, nil, zerolog.Nop())
	rec := do(t, r, "GET", "/api/snapshot/top")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"generated_at":"2024-05-31T08:00:00Z","top_n":[]}`, rec.Body.String())
}

func TestGetTop_MissingGeneratedAt(t *testing.T) {
	doc := `{"records":[{"instrument_id":"1625","rank":1}],"top_n":["1625"]}`
	r := NewRouter(fakeSource{data: []byte(doc)}, nil, nil, zerolog.Nop())
	rec := do(t, r, "GET", "/api/snapshot/top")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, json.Valid(rec.Body.Bytes()), rec.Body.String())
	assert.JSONEq(t, `{"generated_at":null,"top_n":[{"instrument_id":"1625","rank":1}]}`, rec.Body.String())
}

func TestGetRecord(t *testing.T) {
	r := NewRouter(fakeSource{data: []byte(snapshotDoc)}, nil, nil, zerolog.Nop())

	rec := do(t, r, "GET", "/api/snapshot/records/1617")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"instrument_id":"1617","name":"Foods","rsi":null,"labels":["Neutral"],"rank":2}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, r, "GET", "/api/snapshot/records/9999").Code)
}

func TestPostRun(t *testing.T) {
	r := NewRouter(fakeSource{}, fakeTrigger{}, nil, zerolog.Nop())
	assert.Equal(t, http.StatusAccepted, do(t, r, "POST", "/api/runs").Code)

	r = NewRouter(fakeSource{}, fakeTrigger{err: pipeline.ErrRunInProgress}, nil, zerolog.Nop())
	assert.Equal(t, http.StatusConflict, do(t, r, "POST", "/api/runs").Code)

	r = NewRouter(fakeSource{}, nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, do(t, r, "POST", "/api/runs").Code)
}

func TestMetricsRoute(t *testing.T) {
	m := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("sectorpulse_runs_total 1\n")) })
	r := NewRouter(fakeSource{}, nil, m, zerolog.Nop())
	rec := do(t, r, "GET", "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sectorpulse_runs_total")
}

func TestRecovery(t *testing.T) {
	r := NewRouter(fakeSource{}, nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), zerolog.Nop())
	rec := do(t, r, "GET", "/metrics")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
