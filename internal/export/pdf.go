package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/reporting"
)

const (
	pageWidth    = 190.0
	maxPDFRows   = 50
	nameColWidth = 70.0
)

var (
	headerColor  = [3]int{33, 37, 41}
	bodyColor    = [3]int{50, 50, 50}
	mutedColor   = [3]int{120, 120, 120}
	lineColor    = [3]int{200, 200, 200}
	upColor      = [3]int{0, 128, 0}
	downColor    = [3]int{192, 0, 0}
	stripeColor  = [3]int{245, 245, 245}
	printer      = message.NewPrinter(language.English)
	metricLabels = []string{"Spend", "Impressions", "Clicks", "Conversions", "CTR", "CPC", "CPM", "ROAS"}
)

// PDFInput is everything rendered into a report PDF.
type PDFInput struct {
	Report    *models.Report
	Account   *models.AdAccount
	Campaigns []models.CampaignData
	// Now stamps the footer; zero means time.Now.
	Now time.Time
}

// WriteReportPDF renders a completed report with its period comparison,
// insights and the campaigns sorted as given.
func WriteReportPDF(w io.Writer, in PDFInput) error {
	r := in.Report
	if r == nil {
		return fmt.Errorf("render pdf: nil report")
	}
	if r.Status != models.ReportCompleted || r.Totals == nil {
		return fmt.Errorf("render pdf: report %s is %s", r.ID, r.Status)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	currency := ""
	platform := ""
	if in.Account != nil {
		currency = in.Account.Currency
		platform = in.Account.Platform.DisplayName()
		if in.Account.AccountName != "" {
			platform += " | " + in.Account.AccountName
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(r.Name, true)
	pdf.SetCreator("adreports", true)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(mutedColor[0], mutedColor[1], mutedColor[2])
		pdf.CellFormat(pageWidth/2, 10, tr("Generated "+now.UTC().Format("2006-01-02 15:04 MST")), "", 0, "L", false, 0, "")
		pdf.CellFormat(pageWidth/2, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 12, tr("  "+r.Name), "", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
	sub := fmt.Sprintf("  %s | %s", r.TemplateKind.Title(), r.DateRange().String())
	if platform != "" {
		sub += " | " + platform
	}
	pdf.CellFormat(0, 8, tr(sub), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+pageWidth, pdf.GetY())
		pdf.Ln(3)
	}

	section("Summary")
	drawSummary(pdf, tr, r.Totals, r.Previous, currency)
	pdf.Ln(6)

	if r.AIDescription != "" {
		section("Analysis")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
		pdf.MultiCell(pageWidth, 5, tr(r.AIDescription), "", "L", false)
		pdf.Ln(4)
	}

	if len(r.AIRecommendations) > 0 {
		section("Recommendations")
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
		for i, rec := range r.AIRecommendations {
			pdf.MultiCell(pageWidth, 5, tr(fmt.Sprintf("%d. %s", i+1, rec)), "", "L", false)
			pdf.Ln(1)
		}
		pdf.Ln(4)
	}

	if len(in.Campaigns) > 0 {
		section("Campaigns")
		drawCampaigns(pdf, tr, in.Campaigns, currency)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func drawSummary(pdf *gofpdf.Fpdf, tr func(string) string, cur, prev *models.PeriodTotals, currency string) {
	colW := []float64{40, 50, 50, 50}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
	pdf.CellFormat(colW[0], 7, "Metric", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colW[1], 7, tr(cur.DateFrom.Format(models.DateLayout)+" - "+cur.DateTo.Format(models.DateLayout)), "B", 0, "R", false, 0, "")
	prevLabel := "Previous period"
	if prev != nil {
		prevLabel = prev.DateFrom.Format(models.DateLayout) + " - " + prev.DateTo.Format(models.DateLayout)
	}
	pdf.CellFormat(colW[2], 7, tr(prevLabel), "B", 0, "R", false, 0, "")
	pdf.CellFormat(colW[3], 7, "Change", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, label := range metricLabels {
		curV, curText := metricValue(label, cur, currency)
		prevText := "-"
		changeText := "-"
		var change *float64
		if prev != nil {
			var prevV float64
			prevV, prevText = metricValue(label, prev, currency)
			change = reporting.PercentChange(curV, prevV)
			if change != nil {
				changeText = fmt.Sprintf("%+.1f%%", *change)
			}
		}
		pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
		pdf.CellFormat(colW[0], 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(colW[1], 6, tr(curText), "", 0, "R", false, 0, "")
		pdf.CellFormat(colW[2], 6, tr(prevText), "", 0, "R", false, 0, "")
		switch {
		case change != nil && *change > 0.05:
			pdf.SetTextColor(upColor[0], upColor[1], upColor[2])
		case change != nil && *change < -0.05:
			pdf.SetTextColor(downColor[0], downColor[1], downColor[2])
		}
		pdf.CellFormat(colW[3], 6, changeText, "", 1, "R", false, 0, "")
	}
	pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
}

// metricValue returns the raw value used for the change column and the
// formatted text. ROAS is 0 and "-" when the period carries no revenue.
func metricValue(label string, t *models.PeriodTotals, currency string) (float64, string) {
	switch label {
	case "Spend":
		return t.Spend, money(t.Spend, currency)
	case "Impressions":
		return float64(t.Impressions), printer.Sprintf("%d", t.Impressions)
	case "Clicks":
		return float64(t.Clicks), printer.Sprintf("%d", t.Clicks)
	case "Conversions":
		return t.Conversions, printer.Sprintf("%.1f", t.Conversions)
	case "CTR":
		return t.CTR, printer.Sprintf("%.2f%%", t.CTR)
	case "CPC":
		return t.CPC, money(t.CPC, currency)
	case "CPM":
		return t.CPM, money(t.CPM, currency)
	case "ROAS":
		if t.ROAS == nil {
			return 0, "-"
		}
		return *t.ROAS, printer.Sprintf("%.2fx", *t.ROAS)
	}
	return 0, ""
}

func drawCampaigns(pdf *gofpdf.Fpdf, tr func(string) string, rows []models.CampaignData, currency string) {
	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Campaign", nameColWidth, "L"},
		{"Spend", 25, "R"},
		{"Impr.", 25, "R"},
		{"Clicks", 18, "R"},
		{"CTR", 15, "R"},
		{"Conv.", 15, "R"},
		{"CPA", 17, "R"},
	}
	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetTextColor(bodyColor[0], bodyColor[1], bodyColor[2])
		for i, c := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 6, c.title, "B", ln, c.align, false, 0, "")
		}
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	shown := rows
	if len(shown) > maxPDFRows {
		shown = shown[:maxPDFRows]
	}
	pdf.SetFillColor(stripeColor[0], stripeColor[1], stripeColor[2])
	for i, c := range shown {
		if pdf.GetY()+6 > pageHeight-bottom-5 {
			pdf.AddPage()
			header()
		}
		fill := i%2 == 1
		values := []string{
			truncate(c.CampaignName, 45),
			money(c.Spend, currency),
			printer.Sprintf("%d", c.Impressions),
			printer.Sprintf("%d", c.Clicks),
			printer.Sprintf("%.2f%%", c.CTR),
			printer.Sprintf("%.1f", c.Conversions),
			money(c.CostPerConversion, currency),
		}
		for j, v := range values {
			ln := 0
			if j == len(values)-1 {
				ln = 1
			}
			pdf.CellFormat(cols[j].width, 6, tr(v), "", ln, cols[j].align, fill, 0, "")
		}
	}
	if len(rows) > len(shown) {
		pdf.Ln(2)
		pdf.SetTextColor(mutedColor[0], mutedColor[1], mutedColor[2])
		pdf.CellFormat(0, 6, fmt.Sprintf("%d more campaigns in the CSV export", len(rows)-len(shown)), "", 1, "L", false, 0, "")
	}
}

func money(v float64, currency string) string {
	s := printer.Sprintf("%.2f", v)
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
