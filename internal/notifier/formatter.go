package notifier

import (
	"fmt"
	"html"
	"strings"

	"TaxSentinel/internal/model"
	"TaxSentinel/internal/recorder"
)

// maxAlertLines caps the alert list of a Telegram message.
const maxAlertLines = 20

var severityIcon = map[model.Severity]string{
	model.SeverityNormal:   "🟢",
	model.SeverityWarning:  "🟡",
	model.SeverityCritical: "🔴",
}

// FormatEcosystemReport formats a run report into a Telegram message.
func FormatEcosystemReport(rep *model.EcosystemReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>%s health</b> | %s\n", html.EscapeString(rep.Ecosystem), rep.Timestamp.UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Overall: %s %s\n\n", severityIcon[rep.OverallStatus], rep.OverallStatus))

	b.WriteString("📈 <b>Tokens:</b>\n")
	for _, t := range rep.Tokens {
		b.WriteString("  " + formatToken(t) + "\n")
	}

	m := rep.Metrics
	b.WriteString("\n🌐 <b>Ecosystem:</b>\n")
	b.WriteString(fmt.Sprintf("  Total volume: %.2f\n", m.TotalVolume))
	b.WriteString(fmt.Sprintf("  Avg price change: %+.2f%%\n", m.AvgPriceChangePct))
	b.WriteString(fmt.Sprintf("  Sustainability score: %.2f\n", m.SustainabilityScore))
	if m.TokensUnavailable > 0 {
		b.WriteString(fmt.Sprintf("  Unavailable: %d/%d\n", m.TokensUnavailable, m.TokensEvaluated+m.TokensUnavailable))
	}

	if len(rep.Alerts) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Alerts (%d):</b>\n", len(rep.Alerts)))
		for i, a := range rep.Alerts {
			if i == maxAlertLines {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(rep.Alerts)-maxAlertLines))
				break
			}
			b.WriteString("  " + html.EscapeString(a) + "\n")
		}
	}
	return b.String()
}

func formatToken(t model.TokenAssessment) string {
	name := html.EscapeString(t.Name)
	if name == "" {
		name = html.EscapeString(t.TokenID)
	}
	if t.Status != model.StatusOK {
		return fmt.Sprintf("⚪ %s: unavailable", name)
	}
	line := fmt.Sprintf("%s %s", severityIcon[t.Severity], name)
	if h := t.Health; h != nil {
		line += fmt.Sprintf(" | price %.6g (%+.1f%%) | vol %+.1f%%", h.CurrentPrice, h.PriceChangePct, h.VolumeChangePct)
	}
	if s := t.Sustainability; s != nil {
		if r, ok := s.Ratio(); ok {
			line += fmt.Sprintf(" | ratio %.2f", r)
		} else {
			line += " | ratio n/a"
		}
	}
	return line
}

// ShouldNotify reports whether a run deserves a push message.
func ShouldNotify(rep *model.EcosystemReport) bool {
	return rep.OverallStatus != model.SeverityNormal || len(rep.Alerts) > 0
}

// FormatRunHistory formats recent stored runs for display.
func FormatRunHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "📦 No runs recorded yet"
	}
	var b strings.Builder
	b.WriteString("📦 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%s  %-8s  %d alerts\n", r.Timestamp.Format("2006-01-02 15:04"), r.OverallStatus, r.Alerts))
	}
	return b.String()
}
