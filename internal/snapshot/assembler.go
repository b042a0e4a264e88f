// Package snapshot assembles one run's classified, ranked output.
package snapshot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"SectorPulse/internal/indicator"
	"SectorPulse/internal/model"
	"SectorPulse/internal/strategy"
)

// SeriesSource supplies price history by instrument id.
type SeriesSource interface {
	Series(id string) (model.Series, bool)
}

// Options configures an Assembler.
type Options struct {
	Universe   []model.Instrument
	Engine     *indicator.Engine
	Classifier *strategy.Classifier
	Ranker     *strategy.Ranker
	TopN       int
	// StaleAfter omits instruments whose latest bar is older than this,
	// measured from Now. Zero disables the check.
	StaleAfter time.Duration
	Workers    int
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Assembler runs the engine, classifier and ranker over the universe.
type Assembler struct {
	opts Options
}

// NewAssembler creates an Assembler, filling unset collaborators with defaults.
func NewAssembler(opts Options) *Assembler {
	if opts.Engine == nil {
		opts.Engine = indicator.NewEngine(indicator.DefaultParams())
	}
	if opts.Classifier == nil {
		opts.Classifier = strategy.NewClassifier(strategy.DefaultThresholds())
	}
	if opts.Ranker == nil {
		opts.Ranker = strategy.NewRanker(strategy.DefaultWeights())
	}
	if opts.TopN == 0 {
		opts.TopN = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{opts: opts}
}

type outcome struct {
	entry   *model.RankedEntry
	failure *model.PartialFailure
}

// Assemble builds the snapshot for the configured universe. Instruments
// without usable data are reported as partial failures; nothing here aborts
// the run.
func (a *Assembler) Assemble(src SeriesSource) *model.Snapshot {
	now := a.opts.Now().UTC()
	universe := a.opts.Universe
	outcomes := make([]outcome, len(universe))

	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i, inst := range universe {
		i, inst := i, inst
		g.Go(func() error {
			outcomes[i] = a.evaluate(src, inst, now)
			return nil
		})
	}
	_ = g.Wait()

	snap := &model.Snapshot{
		Records:     []model.Record{},
		TopN:        []string{},
		Failures:    []model.PartialFailure{},
		GeneratedAt: now,
	}
	entries := make([]model.RankedEntry, 0, len(universe))
	for _, o := range outcomes {
		switch {
		case o.failure != nil:
			a.opts.Logger.Warn().
				Str("instrument", o.failure.InstrumentID).
				Str("kind", o.failure.Kind).
				Msg(o.failure.Reason)
			snap.Failures = append(snap.Failures, *o.failure)
		case o.entry != nil:
			entries = append(entries, *o.entry)
		}
	}

	ranked := a.opts.Ranker.Rank(entries)
	for i, e := range ranked {
		snap.Records = append(snap.Records, toRecord(e, i+1))
	}
	for _, e := range strategy.SelectTop(ranked, a.opts.TopN) {
		snap.TopN = append(snap.TopN, e.Instrument.ID)
	}

	a.opts.Logger.Info().
		Int("records", len(snap.Records)).
		Int("failures", len(snap.Failures)).
		Strs("top_n", snap.TopN).
		Msg("snapshot assembled")
	return snap
}

func (a *Assembler) evaluate(src SeriesSource, inst model.Instrument, now time.Time) outcome {
	series, ok := src.Series(inst.ID)
	if !ok || series.Empty() {
		return unavailable(inst.ID, "no price history")
	}
	if a.opts.StaleAfter > 0 {
		latest := series.Latest().Date
		if now.Sub(latest) > a.opts.StaleAfter {
			return unavailable(inst.ID, fmt.Sprintf("latest bar %s is older than %s",
				latest.Format("2006-01-02"), a.opts.StaleAfter))
		}
	}
	ind, err := a.opts.Engine.Compute(series)
	if err != nil {
		return unavailable(inst.ID, err.Error())
	}
	return outcome{entry: &model.RankedEntry{
		Instrument: inst,
		Indicators: ind,
		Labels:     a.opts.Classifier.Classify(ind),
	}}
}

func unavailable(id, reason string) outcome {
	return outcome{failure: &model.PartialFailure{
		InstrumentID: id,
		Kind:         model.FailureDataUnavailable,
		Reason:       reason,
	}}
}

func toRecord(e model.RankedEntry, rank int) model.Record {
	ind := e.Indicators
	r := model.Record{
		InstrumentID:     e.Instrument.ID,
		Name:             e.Instrument.Name,
		Date:             ind.Date.Format("2006-01-02"),
		Close:            ind.LatestClose,
		ChangePct:        ind.ChangePct,
		RSI:              ind.RSI,
		PercentB:         ind.PercentB,
		MADeviation:      ind.MADeviation,
		MADeviationShort: ind.MADeviationShort,
		MADeviationLong:  ind.MADeviationLong,
		VolumeRatio:      ind.VolumeRatio,
		Labels:           e.Labels,
		Rank:             rank,
		RankScore:        e.Score,
	}
	metrics := []struct {
		name string
		m    model.Metric
	}{
		{"change_pct", ind.ChangePct},
		{"rsi", ind.RSI},
		{"percent_b", ind.PercentB},
		{"ma_deviation", ind.MADeviation},
		{"ma_deviation_short", ind.MADeviationShort},
		{"ma_deviation_long", ind.MADeviationLong},
		{"volume_ratio", ind.VolumeRatio},
	}
	for _, m := range metrics {
		if !m.m.OK() {
			r.Flags = append(r.Flags, m.name+":"+m.m.Status.String())
		}
	}
	return r
}
