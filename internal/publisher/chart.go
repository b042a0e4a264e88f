package publisher

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"SectorPulse/internal/model"
)

// SeriesSource supplies price history by instrument id.
type SeriesSource interface {
	Series(id string) (model.Series, bool)
}

var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#fffac8", "#800000",
	"#aaffc3", "#808000", "#ffd8b1", "#000075", "#808080",
}

// Dataset is one Chart.js line. Nil points are drawn as gaps.
type Dataset struct {
	Label           string     `json:"label"`
	Data            []*float64 `json:"data"`
	BorderColor     string     `json:"borderColor"`
	BackgroundColor string     `json:"backgroundColor"`
	BorderWidth     float64    `json:"borderWidth"`
	PointRadius     int        `json:"pointRadius"`
	Fill            bool       `json:"fill"`
	Tension         float64    `json:"tension"`
}

// Chart is the data behind the normalized performance chart.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// BuildChart indexes the closes of every instrument over the last days
// trading dates to 100 at its first close in the window. Dates missing for
// one instrument carry its previous value forward. Values are rounded to
// two places.
func BuildChart(src SeriesSource, universe []model.Instrument, days int) Chart {
	closes := make(map[string]map[time.Time]float64, len(universe))
	dateSet := make(map[time.Time]struct{})
	for _, inst := range universe {
		s, ok := src.Series(inst.ID)
		if !ok {
			continue
		}
		byDate := make(map[time.Time]float64, s.Len())
		for _, p := range s.Points {
			byDate[p.Date] = p.Close
			dateSet[p.Date] = struct{}{}
		}
		closes[inst.ID] = byDate
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	if days > 0 && len(dates) > days {
		dates = dates[len(dates)-days:]
	}

	chart := Chart{Labels: make([]string, len(dates))}
	for i, d := range dates {
		chart.Labels[i] = d.Format("2006/01/02")
	}

	for i, inst := range universe {
		byDate, ok := closes[inst.ID]
		if !ok {
			continue
		}
		label := inst.Name
		if label == "" {
			label = inst.ID
		}
		color := palette[i%len(palette)]
		ds := Dataset{
			Label:           label,
			Data:            make([]*float64, len(dates)),
			BorderColor:     color,
			BackgroundColor: color,
			BorderWidth:     1.5,
			Fill:            false,
			Tension:         0.1,
		}

		var base float64
		var last *float64
		for j, d := range dates {
			if c, ok := byDate[d]; ok && c != 0 {
				if base == 0 {
					base = c
				}
				v := decimal.NewFromFloat(c).Div(decimal.NewFromFloat(base)).
					Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
				last = &v
			}
			ds.Data[j] = last
		}
		chart.Datasets = append(chart.Datasets, ds)
	}
	return chart
}
