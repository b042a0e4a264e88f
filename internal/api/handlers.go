package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"SectorPulse/internal/pipeline"
	"SectorPulse/internal/recorder"
)

type handler struct {
	src     SnapshotSource
	trigger Trigger
	log     zerolog.Logger
}

// latest loads the snapshot document, writing the error response itself
// when there is none.
func (h *handler) latest(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := h.src.LatestJSON(r.Context())
	switch {
	case errors.Is(err, recorder.ErrNoSnapshot):
		respondError(w, http.StatusNotFound, "no snapshot yet")
		return nil, false
	case err != nil:
		h.log.Error().Err(err).Msg("load snapshot")
		respondError(w, http.StatusInternalServerError, "failed to load snapshot")
		return nil, false
	}
	return data, true
}

// GET /api/snapshot
func (h *handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	if data, ok := h.latest(w, r); ok {
		respondRaw(w, http.StatusOK, data)
	}
}

// GET /api/snapshot/top returns the full records of the top-N list in order.
func (h *handler) getTop(w http.ResponseWriter, r *http.Request) {
	data, ok := h.latest(w, r)
	if !ok {
		return
	}
	doc := gjson.ParseBytes(data)
	byID := make(map[string]string)
	doc.Get("records").ForEach(func(_, rec gjson.Result) bool {
		byID[rec.Get("instrument_id").String()] = rec.Raw
		return true
	})

	generatedAt := doc.Get("generated_at").Raw
	if generatedAt == "" {
		generatedAt = "null"
	}
	buf := []byte(`{"generated_at":` + generatedAt + `,"top_n":[`)
	first := true
	doc.Get("top_n").ForEach(func(_, id gjson.Result) bool {
		raw, ok := byID[id.String()]
		if !ok {
			return true
		}
		if !first {
			buf = append(buf, ',')
		}
		buf = append(buf, raw...)
		first = false
		return true
	})
	buf = append(buf, "]}"...)
	respondRaw(w, http.StatusOK, buf)
}

// GET /api/snapshot/records/{id}
func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	data, ok := h.latest(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	var found string
	gjson.GetBytes(data, "records").ForEach(func(_, rec gjson.Result) bool {
		if rec.Get("instrument_id").String() == id {
			found = rec.Raw
			return false
		}
		return true
	})
	if found == "" {
		respondError(w, http.StatusNotFound, "instrument not in snapshot")
		return
	}
	respondRaw(w, http.StatusOK, []byte(found))
}

// POST /api/runs starts a run in the background.
func (h *handler) postRun(w http.ResponseWriter, r *http.Request) {
	started := make(chan error, 1)
	go func() {
		// detached from the request; a run outlives the response
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		res, err := h.trigger.Run(ctx)
		select {
		case started <- err:
		default:
		}
		if err != nil {
			if !errors.Is(err, pipeline.ErrRunInProgress) {
				h.log.Error().Err(err).Msg("triggered run failed")
			}
			return
		}
		h.log.Info().Str("run_id", res.RunID).Msg("triggered run finished")
	}()

	// report a busy runner immediately, otherwise accept
	select {
	case err := <-started:
		if errors.Is(err, pipeline.ErrRunInProgress) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
	case <-time.After(50 * time.Millisecond):
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
