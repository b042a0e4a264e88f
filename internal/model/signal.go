package model

// TrendLabel is one classification of an instrument's short-term state.
type TrendLabel string

const (
	LabelOverheated TrendLabel = "Overheated"
	LabelOversold   TrendLabel = "Oversold"
	LabelUptrend    TrendLabel = "Uptrend"
	LabelDowntrend  TrendLabel = "Downtrend"
	LabelNeutral    TrendLabel = "Neutral"
)

// AllLabels is the label vocabulary in canonical order.
var AllLabels = []TrendLabel{LabelOverheated, LabelOversold, LabelUptrend, LabelDowntrend, LabelNeutral}

// Valid reports whether l belongs to the vocabulary.
func (l TrendLabel) Valid() bool {
	for _, v := range AllLabels {
		if v == l {
			return true
		}
	}
	return false
}

// Labels is a set of trend labels kept in canonical order.
type Labels []TrendLabel

// NewLabels builds a set from the given labels, dropping duplicates.
func NewLabels(ls ...TrendLabel) Labels {
	out := make(Labels, 0, len(ls))
	for _, v := range AllLabels {
		for _, l := range ls {
			if l == v {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Has reports whether the set contains l.
func (ls Labels) Has(l TrendLabel) bool {
	for _, v := range ls {
		if v == l {
			return true
		}
	}
	return false
}

// Hot reports whether the instrument is both trending up and overheated.
func (ls Labels) Hot() bool {
	return ls.Has(LabelUptrend) && ls.Has(LabelOverheated)
}

// RankedEntry is one classified instrument inside a single run.
type RankedEntry struct {
	Instrument Instrument
	Indicators IndicatorSet
	Labels     Labels
	Score      float64
}
