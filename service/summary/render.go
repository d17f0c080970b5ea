package summary

import (
	"strings"

	"github.com/nezhahq/sysmon/model"
)

const (
	dailyRule  = "━━━━━━━━━━━━━━━━━━━━━━━━━━"
	weeklyRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	dailyBox   = "└─────────────────────────"
	weeklyBox  = "└────────────────────────────"
)

var severityEmoji = map[model.Severity]string{
	model.SeverityHigh:   "🔴",
	model.SeverityMedium: "🟡",
	model.SeverityLow:    "🟢",
}

type lines struct {
	b strings.Builder
	l model.Localizer
}

func (w *lines) add(prefix, msgid string, args ...any) {
	w.b.WriteString(prefix)
	if msgid != "" {
		w.b.WriteString(model.Tr(w.l, msgid, args...))
	}
	w.b.WriteByte('\n')
}

func (w *lines) String() string {
	return strings.TrimRight(w.b.String(), "\n")
}

func AlertTitle(l model.Localizer, hostname string) string {
	return "⚠️ " + model.Tr(l, "Alert: %s", hostname)
}

// RenderDaily renders the aggregate daily notification for every client that
// had data on day.
func RenderDaily(l model.Localizer, day string, summaries []*model.DailySummary) (title, body string) {
	w := &lines{l: l}
	w.add("📊 ", "Daily Report - %s", day)
	w.add(dailyRule, "")
	w.add("🖥️ ", "Systems monitored: %d", len(summaries))
	w.add("", "")

	for _, s := range summaries {
		w.add("┌─ ", "%s (%s)", s.Hostname, s.ClientID)
		w.add("│ ", "CPU: avg %.1f%% | max %.1f%%", s.CPUAvg, s.CPUMax)
		w.add("│ ", "RAM: avg %.1f%% | max %.1f%%", s.RAMAvgPercent, s.RAMMaxPercent)
		if s.TempAvg != nil && s.TempMax != nil {
			w.add("│ ", "Temp: avg %.1f°C | max %.1f°C", *s.TempAvg, *s.TempMax)
		}
		w.add("│ ", "Disk: max %.1f%% (%s)", s.DiskMaxPercent, s.DiskMaxPartition)
		w.add("│ ", "Network: ↑%.2fGB ↓%.2fGB", s.NetworkSentGB, s.NetworkRecvGB)
		w.add("│ ", "Load max: %.2f | Uptime: %.1fh", s.LoadAvgMax, s.UptimeHours)
		if s.AlertsCount > 0 {
			w.add("│ ⚠️ ", "Alerts: %d", s.AlertsCount)
		}
		w.add(dailyBox, "")
		w.add("", "")
	}
	return "📊 " + model.Tr(l, "System Report - %s", day), w.String()
}

// RenderWeekly renders the package backlog report. Each client lists at most
// five packages.
func RenderWeekly(l model.Localizer, r *model.WeeklyPackageReport) (title, body string) {
	w := &lines{l: l}
	w.add("📦 ", "Weekly Package Report")
	w.add(weeklyRule, "")
	w.add("📅 ", "Week: %s", r.WeekID)
	w.add("🖥️ ", "Systems: %d", len(r.Clients))
	w.add("📊 ", "Total updates: %d", r.TotalPackages)
	if r.TotalSecurity > 0 {
		w.add("🔒 ", "Security updates: %d", r.TotalSecurity)
	}
	w.add("", "")

	for _, c := range r.Clients {
		w.add("┌─ "+severityEmoji[c.Severity]+" ", "%s (%s)", c.Hostname, c.ClientID)
		w.add("│ ", "Packages: %d (%s)", c.TotalCount, c.PackageManager)
		if c.SecurityUpdates > 0 {
			w.add("│ 🔒 ", "Security: %d", c.SecurityUpdates)
		}
		if len(c.Packages) > 0 {
			w.add("│ ", "Top packages:")
			for _, p := range c.Packages[:min(topPackages, len(c.Packages))] {
				w.add("│   • ", "%s: %s → %s", p.Name, p.CurrentVersion, p.NewVersion)
			}
			if extra := len(c.Packages) - topPackages; extra > 0 {
				w.add("│   ", "... and %d more", extra)
			}
		}
		w.add(weeklyBox, "")
		w.add("", "")
	}
	return "📦 " + model.Tr(l, "Packages to Update - %d total", r.TotalPackages), w.String()
}

// RenderAlertDigest lists pending alerts oldest first.
func RenderAlertDigest(l model.Localizer, alerts []model.Alert) (title, body string) {
	w := &lines{l: l}
	w.add("⚠️ ", "Pending alerts: %d", len(alerts))
	w.add("", "")
	for _, a := range alerts {
		w.add("• ", "[%s] %s: %s", a.RecordedAt.UTC().Format("2006-01-02 15:04"), a.Hostname, a.Message)
	}
	return "⚠️ " + model.Tr(l, "Alert digest - %d pending", len(alerts)), w.String()
}
