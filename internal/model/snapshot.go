package model

import (
	"fmt"
	"time"
)

// Failure kinds recorded in a snapshot.
const (
	FailureDataUnavailable = "data_unavailable"
)

// Record is one instrument row handed to publishers.
type Record struct {
	InstrumentID     string   `json:"instrument_id"`
	Name             string   `json:"name"`
	Date             string   `json:"date"`
	Close            float64  `json:"close"`
	ChangePct        Metric   `json:"change_pct"`
	RSI              Metric   `json:"rsi"`
	PercentB         Metric   `json:"percent_b"`
	MADeviation      Metric   `json:"ma_deviation"`
	MADeviationShort Metric   `json:"ma_deviation_short"`
	MADeviationLong  Metric   `json:"ma_deviation_long"`
	VolumeRatio      Metric   `json:"volume_ratio"`
	Labels           Labels   `json:"labels"`
	Rank             int      `json:"rank"`
	RankScore        float64  `json:"rank_score"`
	Flags            []string `json:"flags,omitempty"`
}

// PartialFailure records an instrument left out of a run.
type PartialFailure struct {
	InstrumentID string `json:"instrument_id"`
	Kind         string `json:"kind"`
	Reason       string `json:"reason"`
}

// Snapshot is the complete output of one run. It is not modified after assembly.
type Snapshot struct {
	Records     []Record         `json:"records"`
	TopN        []string         `json:"top_n"`
	Failures    []PartialFailure `json:"failures"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Record looks up the row for an instrument.
func (s *Snapshot) Record(id string) (Record, bool) {
	for _, r := range s.Records {
		if r.InstrumentID == id {
			return r, true
		}
	}
	return Record{}, false
}

// Validate checks the invariants consumers rely on.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if s.GeneratedAt.IsZero() {
		return fmt.Errorf("snapshot: generated_at is not set")
	}
	seen := make(map[string]bool, len(s.Records))
	for i, r := range s.Records {
		if r.InstrumentID == "" {
			return fmt.Errorf("snapshot: record %d has no instrument_id", i)
		}
		if seen[r.InstrumentID] {
			return fmt.Errorf("snapshot: duplicate instrument %s", r.InstrumentID)
		}
		seen[r.InstrumentID] = true
		if len(r.Labels) == 0 {
			return fmt.Errorf("snapshot: %s has no labels", r.InstrumentID)
		}
		for _, l := range r.Labels {
			if !l.Valid() {
				return fmt.Errorf("snapshot: %s has unknown label %q", r.InstrumentID, l)
			}
		}
	}
	for _, id := range s.TopN {
		if !seen[id] {
			return fmt.Errorf("snapshot: top_n instrument %s missing from records", id)
		}
	}
	for _, f := range s.Failures {
		if seen[f.InstrumentID] {
			return fmt.Errorf("snapshot: %s is both recorded and failed", f.InstrumentID)
		}
	}
	return nil
}
