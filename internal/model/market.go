package model

import "time"

// PricePoint is one trading day of an instrument.
type PricePoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series holds the daily history of one instrument, oldest first.
type Series struct {
	InstrumentID string
	Points       []PricePoint
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.Points) }

// Empty reports whether the series has no points.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// Latest returns the most recent point. The series must not be empty.
func (s Series) Latest() PricePoint { return s.Points[len(s.Points)-1] }

// Closes returns the close prices in date order.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Volumes returns the traded volumes in date order.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Volume
	}
	return out
}

// Instrument is one member of the configured universe.
type Instrument struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}
