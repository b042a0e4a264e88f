package publisher

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"

	"SectorPulse/internal/model"
)

// Page is everything rendered into the published HTML.
type Page struct {
	Snapshot *model.Snapshot
	Universe []model.Instrument
	Chart    Chart
}

type panel struct {
	Name        string
	Change      string
	ChangeColor string
	Status      string
	StatusClass string
}

type hotItem struct {
	Rank int
	Name string
	RSI  string
	PctB string
}

type pageView struct {
	Updated   string
	ChartID   string
	Panels    []panel
	Hot       []hotItem
	Failures  []model.PartialFailure
	Chart     Chart
	ChartDays int // dates actually plotted
}

var pageTmpl = template.Must(template.New("page").Parse(`<div class="sectorpulse" style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 800px; margin: 0 auto;">
<p class="updated" style="text-align: right; font-size: 0.8rem; color: #666;">Data updated: {{.Updated}}</p>
<div class="hot">
<h3>Hot sectors</h3>
{{- if .Hot}}
<ol>
{{- range .Hot}}
<li data-rank="{{.Rank}}">{{.Name}} <span class="rsi">RSI {{.RSI}}</span> <span class="pctb">%B {{.PctB}}</span></li>
{{- end}}
</ol>
{{- else}}
<p class="none">No sector is both trending up and overheated.</p>
{{- end}}
</div>
<div class="panels" style="display: grid; grid-template-columns: 1fr 1fr; gap: 10px; margin-bottom: 30px;">
{{- range .Panels}}
<div class="panel" style="padding: 12px; border-radius: 6px; background: #fff; border: 1px solid #eee;">
<div class="name" style="font-weight: bold; font-size: 0.9rem; color: #333;">{{.Name}}</div>
<div class="change" style="font-size: 1.4rem; font-weight: bold; color: {{.ChangeColor}};">{{.Change}}</div>
<div class="status {{.StatusClass}}">{{.Status}}</div>
</div>
{{- end}}
</div>
{{- if .Failures}}
<ul class="failures">
{{- range .Failures}}
<li>{{.InstrumentID}}: {{.Reason}}</li>
{{- end}}
</ul>
{{- end}}
<h3>{{.ChartDays}}-day chart (start = 100)</h3>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
<div style="position: relative; width: 100%; height: 500px;">
<canvas id="{{.ChartID}}"></canvas>
</div>
<script>
(function() {
  const ctx = document.getElementById({{.ChartID}}).getContext('2d');
  new Chart(ctx, {
    type: 'line',
    data: { labels: {{.Chart.Labels}}, datasets: {{.Chart.Datasets}} },
    options: {
      responsive: true,
      maintainAspectRatio: false,
      interaction: { mode: 'index', intersect: false },
      plugins: { legend: { position: 'bottom', labels: { usePointStyle: true, boxWidth: 8 } } },
      elements: { point: { radius: 0, hitRadius: 10, hoverRadius: 5 } }
    }
  });
})();
</script>
</div>
`))

// statusBadge mirrors the classifier's precedence: Overheated wins over Oversold.
func statusBadge(ls model.Labels) (string, string) {
	switch {
	case ls.Has(model.LabelOverheated):
		return "🔥 Overheated", "overheated"
	case ls.Has(model.LabelOversold):
		return "❄️ Oversold", "oversold"
	default:
		return "Normal", "normal"
	}
}

func formatChange(m model.Metric) (string, string) {
	if !m.OK() {
		return "n/a", "#333"
	}
	switch {
	case m.Value > 0:
		return fmt.Sprintf("+%.2f%%", m.Value), "#d32f2f"
	case m.Value < 0:
		return fmt.Sprintf("%.2f%%", m.Value), "#1976d2"
	default:
		return "0.00%", "#333"
	}
}

func formatMetric(m model.Metric, format string) string {
	if !m.OK() {
		return "n/a"
	}
	return fmt.Sprintf(format, m.Value)
}

func displayName(r model.Record) string {
	if r.Name != "" {
		return r.Name
	}
	return r.InstrumentID
}

func buildView(p Page) pageView {
	snap := p.Snapshot
	v := pageView{
		ChartID:   fmt.Sprintf("sectorChart_%d", snap.GeneratedAt.Unix()),
		Failures:  snap.Failures,
		Chart:     p.Chart,
		ChartDays: len(p.Chart.Labels),
	}

	// panels follow the universe; records missing from it go last by id
	order := make(map[string]int, len(p.Universe))
	for i, inst := range p.Universe {
		order[inst.ID] = i
	}
	records := append([]model.Record(nil), snap.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		oi, iok := order[records[i].InstrumentID]
		oj, jok := order[records[j].InstrumentID]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return records[i].InstrumentID < records[j].InstrumentID
		}
	})

	for _, r := range records {
		if r.Date > v.Updated {
			v.Updated = r.Date
		}
		change, color := formatChange(r.ChangePct)
		status, class := statusBadge(r.Labels)
		v.Panels = append(v.Panels, panel{
			Name:        displayName(r),
			Change:      change,
			ChangeColor: color,
			Status:      status,
			StatusClass: class,
		})
	}

	for i, id := range snap.TopN {
		r, ok := snap.Record(id)
		if !ok {
			continue
		}
		v.Hot = append(v.Hot, hotItem{
			Rank: i + 1,
			Name: displayName(r),
			RSI:  formatMetric(r.RSI, "%.1f"),
			PctB: formatMetric(r.PercentB, "%.2f"),
		})
	}
	return v
}

// Render writes the publishable HTML fragment for a snapshot.
func Render(w io.Writer, p Page) error {
	if p.Snapshot == nil {
		return fmt.Errorf("render: snapshot is nil")
	}
	return pageTmpl.Execute(w, buildView(p))
}

// RenderString is Render into a string.
func RenderString(p Page) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
