package notifier

import (
	"fmt"
	"html"
	"strings"

	"SectorPulse/internal/model"
)

// FormatSnapshot formats the run summary sent after every snapshot.
// Messages use Telegram HTML parse mode, so every data field is escaped.
func FormatSnapshot(snap *model.Snapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>SectorPulse</b> | %s\n\n", snap.GeneratedAt.Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("Instruments: %d | Failed: %d\n\n", len(snap.Records), len(snap.Failures)))

	b.WriteString(FormatHot(snap))

	var overheated, oversold []string
	for _, r := range snap.Records {
		switch {
		case r.Labels.Has(model.LabelOverheated):
			overheated = append(overheated, html.EscapeString(r.InstrumentID))
		case r.Labels.Has(model.LabelOversold):
			oversold = append(oversold, html.EscapeString(r.InstrumentID))
		}
	}
	if len(overheated) > 0 {
		b.WriteString(fmt.Sprintf("\n🔥 Overheated: %s\n", strings.Join(overheated, ", ")))
	}
	if len(oversold) > 0 {
		b.WriteString(fmt.Sprintf("🧊 Oversold: %s\n", strings.Join(oversold, ", ")))
	}

	if len(snap.Failures) > 0 {
		b.WriteString("\n⚠️ <b>No data:</b>\n")
		for _, f := range snap.Failures {
			b.WriteString(fmt.Sprintf("  %s (%s)\n", html.EscapeString(f.InstrumentID), html.EscapeString(f.Reason)))
		}
	}
	return b.String()
}

// FormatHot lists the top-N instruments with their key indicators.
func FormatHot(snap *model.Snapshot) string {
	var b strings.Builder
	b.WriteString("🚀 <b>Hot sectors:</b>\n")
	if len(snap.TopN) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	for i, id := range snap.TopN {
		r, ok := snap.Record(id)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %d. %s %s: RSI %s, %%B %s, %s%%\n",
			i+1, html.EscapeString(r.InstrumentID), html.EscapeString(r.Name),
			formatMetric(r.RSI, "%.1f"), formatMetric(r.PercentB, "%.2f"),
			formatMetric(r.ChangePct, "%+.2f")))
	}
	return b.String()
}

func formatMetric(m model.Metric, format string) string {
	if !m.OK() {
		return "n/a"
	}
	return fmt.Sprintf(format, m.Value)
}
