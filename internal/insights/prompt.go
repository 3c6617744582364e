package insights

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/reporting"
)

const topCampaigns = 3

const systemPrompt = "You are an experienced performance marketing analyst. You write concise, data-driven summaries of advertising results for business owners and suggest specific, actionable optimizations."

var templateFocus = map[models.TemplateKind]string{
	models.TemplateLeads: "lead generation efficiency: cost per lead, conversion volume and where budget produces leads most cheaply",
	models.TemplateSales: "revenue and return on ad spend: which campaigns drive profitable sales and where spend is wasted",
	models.TemplateReach: "audience reach and frequency: how efficiently the budget builds awareness and whether ads are overexposed",
}

// BuildMessages renders the deterministic prompt for data and kind.
func BuildMessages(data *reporting.AggregatedCampaignData, kind models.TemplateKind) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: buildPrompt(data, kind)},
	}
}

func buildPrompt(data *reporting.AggregatedCampaignData, kind models.TemplateKind) string {
	p := message.NewPrinter(language.English)
	t := data.Totals
	rng := data.DateRange()
	cur := data.Currency

	var b strings.Builder
	p.Fprintf(&b, "Analyze the following %s campaign results and write a report summary.\n\n", data.Platform.DisplayName())
	p.Fprintf(&b, "Account: %s\n", data.AccountName)
	p.Fprintf(&b, "Period: %s to %s (%d days)\n", rng.FromString(), rng.ToString(), rng.Days())
	p.Fprintf(&b, "Active campaigns: %d\n", len(data.Campaigns))
	p.Fprintf(&b, "Currency: %s\n\n", cur)

	b.WriteString("TOTALS\n")
	p.Fprintf(&b, "- Spend: %.2f %s\n", t.Spend, cur)
	p.Fprintf(&b, "- Impressions: %d\n", t.Impressions)
	p.Fprintf(&b, "- Clicks: %d\n", t.Clicks)
	p.Fprintf(&b, "- CTR: %.2f%%\n", t.CTR)
	p.Fprintf(&b, "- CPC: %.2f %s\n", t.CPC, cur)
	p.Fprintf(&b, "- CPM: %.2f %s\n", t.CPM, cur)
	p.Fprintf(&b, "- Conversions: %.0f\n", t.Conversions)

	switch kind {
	case models.TemplateLeads:
		p.Fprintf(&b, "- Cost per lead: %.2f %s\n", t.CostPerConversion, cur)
	case models.TemplateSales:
		if t.ROAS != nil {
			p.Fprintf(&b, "- ROAS: %.2fx\n", *t.ROAS)
		} else {
			b.WriteString("- ROAS: not reported\n")
		}
		if t.ConversionValue != nil {
			p.Fprintf(&b, "- Conversion value: %.2f %s\n", *t.ConversionValue, cur)
		} else if t.ROAS != nil {
			p.Fprintf(&b, "- Estimated revenue: %.2f %s\n", *t.ROAS*t.Spend, cur)
		}
	case models.TemplateReach:
		if t.Reach != nil {
			p.Fprintf(&b, "- Reach: %d\n", *t.Reach)
		} else {
			b.WriteString("- Reach: not reported\n")
		}
		if t.Frequency != nil {
			p.Fprintf(&b, "- Frequency: %.2f\n", *t.Frequency)
		}
	}

	if top := topBySpend(data.Campaigns, topCampaigns); len(top) > 0 {
		b.WriteString("\nTOP CAMPAIGNS BY SPEND\n")
		for i, c := range top {
			p.Fprintf(&b, "%d. %s: spend %.2f %s, impressions %d, clicks %d, CTR %.2f%%, conversions %.0f\n",
				i+1, c.CampaignName, c.Spend, cur, c.Impressions, c.Clicks, c.CTR, c.Conversions)
		}
	}

	p.Fprintf(&b, "\nFocus the analysis on %s.\n\n", templateFocus[kind])
	b.WriteString("Respond in exactly this format:\n")
	b.WriteString("DESCRIPTION:\n<3-5 sentences summarizing performance, citing the key numbers>\n\n")
	b.WriteString("RECOMMENDATIONS:\n1. <specific recommendation>\n2. <specific recommendation>\n3. <specific recommendation>\n")
	b.WriteString("Give between 3 and 5 recommendations.\n")
	return b.String()
}

// topBySpend returns up to n campaigns ordered by spend, ties by name.
func topBySpend(campaigns []reporting.CampaignMetrics, n int) []reporting.CampaignMetrics {
	sorted := make([]reporting.CampaignMetrics, len(campaigns))
	copy(sorted, campaigns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Spend != sorted[j].Spend {
			return sorted[i].Spend > sorted[j].Spend
		}
		return sorted[i].CampaignName < sorted[j].CampaignName
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
