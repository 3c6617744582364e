package main

import (
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/patrickwarner/adreports/internal/insights"
	"github.com/patrickwarner/adreports/internal/reporting"
)

const rule = "───────────────────────────────────────────────────────────────────────────"

var printer = message.NewPrinter(language.English)

// printPreview writes totals, period-over-period changes, the top campaigns
// and optional insights.
func printPreview(w io.Writer, cur, prev *reporting.AggregatedCampaignData, ins *insights.Insights) {
	rng := cur.DateRange()
	printer.Fprintf(w, "%s | %s\n", cur.Platform.DisplayName(), cur.AccountName)
	printer.Fprintf(w, "Period: %s (%d days)\n", rng.String(), rng.Days())
	if prev != nil {
		printer.Fprintf(w, "Compared with: %s\n", prev.DateRange().String())
	}
	printer.Fprintf(w, "\nTOTALS\n%s\n", rule)

	t := cur.Totals
	var p *reporting.CampaignMetrics
	if prev != nil {
		p = &prev.Totals
	}
	row := func(label, value string, curV float64, prevV func(*reporting.CampaignMetrics) float64) {
		change := ""
		if p != nil {
			if pct := reporting.PercentChange(curV, prevV(p)); pct != nil {
				change = printer.Sprintf("%+.1f%%", *pct)
			} else {
				change = "n/a"
			}
		}
		printer.Fprintf(w, "%-14s %18s %10s\n", label, value, change)
	}
	row("Spend", printer.Sprintf("%.2f %s", t.Spend, cur.Currency), t.Spend, func(m *reporting.CampaignMetrics) float64 { return m.Spend })
	row("Impressions", printer.Sprintf("%d", t.Impressions), float64(t.Impressions), func(m *reporting.CampaignMetrics) float64 { return float64(m.Impressions) })
	row("Clicks", printer.Sprintf("%d", t.Clicks), float64(t.Clicks), func(m *reporting.CampaignMetrics) float64 { return float64(m.Clicks) })
	row("CTR", printer.Sprintf("%.2f%%", t.CTR), t.CTR, func(m *reporting.CampaignMetrics) float64 { return m.CTR })
	row("CPC", printer.Sprintf("%.2f", t.CPC), t.CPC, func(m *reporting.CampaignMetrics) float64 { return m.CPC })
	row("CPM", printer.Sprintf("%.2f", t.CPM), t.CPM, func(m *reporting.CampaignMetrics) float64 { return m.CPM })
	row("Conversions", printer.Sprintf("%.1f", t.Conversions), t.Conversions, func(m *reporting.CampaignMetrics) float64 { return m.Conversions })
	if t.ROAS != nil {
		printer.Fprintf(w, "%-14s %18s\n", "ROAS", printer.Sprintf("%.2fx", *t.ROAS))
	}

	if len(cur.Campaigns) > 0 {
		printer.Fprintf(w, "\nCAMPAIGNS (%d)\n%s\n", len(cur.Campaigns), rule)
		for i, c := range cur.Campaigns {
			if i == 10 {
				printer.Fprintf(w, "... %d more\n", len(cur.Campaigns)-10)
				break
			}
			printer.Fprintf(w, "%-36s %12.2f %10d %7.2f%%\n", clip(c.CampaignName, 36), c.Spend, c.Clicks, c.CTR)
		}
	}

	if ins != nil {
		printer.Fprintf(w, "\nINSIGHTS\n%s\n%s\n", rule, ins.Description)
		for i, r := range ins.Recommendations {
			printer.Fprintf(w, "%d. %s\n", i+1, r)
		}
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
