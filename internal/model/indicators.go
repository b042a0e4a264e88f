package model

import (
	"encoding/json"
	"time"
)

// MetricStatus tells whether an indicator value could be computed.
type MetricStatus uint8

const (
	MetricOK MetricStatus = iota
	MetricInsufficientHistory
	MetricDegenerateWindow
	MetricInvalidInput
)

func (s MetricStatus) String() string {
	switch s {
	case MetricOK:
		return "ok"
	case MetricInsufficientHistory:
		return "insufficient_history"
	case MetricDegenerateWindow:
		return "degenerate_window"
	case MetricInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Metric is an indicator value or an explicit "no data" marker.
// Undefined metrics serialize as JSON null.
type Metric struct {
	Value  float64
	Status MetricStatus
}

// Defined wraps a computed value.
func Defined(v float64) Metric { return Metric{Value: v, Status: MetricOK} }

// Undefined returns a metric carrying only the reason it is missing.
func Undefined(status MetricStatus) Metric { return Metric{Status: status} }

// OK reports whether the metric holds a usable value.
func (m Metric) OK() bool { return m.Status == MetricOK }

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.OK() {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// IndicatorSet holds all computed technical indicators for one instrument,
// evaluated at the date of its latest point.
type IndicatorSet struct {
	Date         time.Time
	LatestClose  float64
	PriorClose   Metric
	LatestVolume float64

	RSI              Metric
	PercentB         Metric
	MADeviation      Metric // percent, over the main MA window
	MADeviationShort Metric
	MADeviationLong  Metric
	VolumeRatio      Metric // multiple of average volume
	ChangePct        Metric
}
