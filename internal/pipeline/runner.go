// Package pipeline runs one full analysis pass and keeps its result.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"SectorPulse/internal/collector"
	"SectorPulse/internal/metrics"
	"SectorPulse/internal/model"
	"SectorPulse/internal/notifier"
	"SectorPulse/internal/publisher"
	"SectorPulse/internal/recorder"
	"SectorPulse/internal/snapshot"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Publisher receives the rendered HTML page.
type Publisher interface {
	Publish(ctx context.Context, html string) error
}

// Notifier delivers the run summary.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options wires a Runner. Recorder, Publisher and Notifier are optional.
type Options struct {
	Universe  []model.Instrument
	Collector *collector.Collector
	Assembler *snapshot.Assembler
	Recorder  recorder.Recorder
	Publisher Publisher
	Notifier  Notifier
	Metrics   *metrics.Metrics
	ChartDays int
	Logger    zerolog.Logger
	NewRunID  func() string
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Snapshot *model.Snapshot
}

// Runner executes runs and holds the latest snapshot.
type Runner struct {
	opts    Options
	running sync.Mutex

	mu         sync.RWMutex
	latest     *model.Snapshot
	latestJSON []byte
	latestID   string
}

// NewRunner creates a Runner, filling unset collaborators with defaults.
func NewRunner(opts Options) *Runner {
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.ChartDays <= 0 {
		opts.ChartDays = 300
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	return &Runner{opts: opts}
}

// Run fetches history, assembles and validates a snapshot, then hands it to
// the recorder, publisher and notifier. Failures after validation are logged
// and do not fail the run.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()

	start := time.Now()
	runID := r.opts.NewRunID()
	log := r.opts.Logger.With().Str("run_id", runID).Logger()
	log.Info().Int("instruments", len(r.opts.Universe)).Msg("run started")

	m := r.opts.Metrics
	defer func() { m.RunDuration.Observe(time.Since(start).Seconds()) }()

	collected, err := r.opts.Collector.Collect(ctx, r.opts.Universe)
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("collect: %w", err)
	}
	m.FetchErrors.Add(float64(len(collected.Errors)))

	snap := r.opts.Assembler.Assemble(collected.Store)
	if err := snap.Validate(); err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	r.mu.Lock()
	r.latest, r.latestJSON, r.latestID = snap, data, runID
	r.mu.Unlock()
	m.ObserveSnapshot(snap)

	if err := r.opts.Recorder.SaveSnapshot(ctx, runID, snap); err != nil {
		log.Error().Err(err).Msg("record snapshot")
	}
	if r.opts.Publisher != nil {
		if err := r.publish(ctx, collected, snap); err != nil {
			log.Error().Err(err).Msg("publish snapshot")
		}
	}
	if r.opts.Notifier != nil {
		if err := r.opts.Notifier.SendWithRetry(ctx, notifier.FormatSnapshot(snap), 3); err != nil {
			log.Error().Err(err).Msg("send notification")
		}
	}

	m.RunsTotal.WithLabelValues("ok").Inc()
	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("records", len(snap.Records)).
		Int("failures", len(snap.Failures)).
		Strs("top_n", snap.TopN).
		Msg("run finished")
	return &Result{RunID: runID, Snapshot: snap}, nil
}

func (r *Runner) publish(ctx context.Context, collected *collector.Result, snap *model.Snapshot) error {
	html, err := publisher.RenderString(publisher.Page{
		Snapshot: snap,
		Universe: r.opts.Universe,
		Chart:    publisher.BuildChart(collected.Store, r.opts.Universe, r.opts.ChartDays),
	})
	if err != nil {
		return err
	}
	return r.opts.Publisher.Publish(ctx, html)
}

// Latest returns the snapshot of the last successful run in this process.
func (r *Runner) Latest() (*model.Snapshot, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.latestID, r.latest != nil
}

// LatestJSON returns the latest snapshot document, falling back to the
// recorder after a restart.
func (r *Runner) LatestJSON(ctx context.Context) ([]byte, error) {
	r.mu.RLock()
	data := r.latestJSON
	r.mu.RUnlock()
	if data != nil {
		return data, nil
	}
	return r.opts.Recorder.LatestSnapshot(ctx)
}
