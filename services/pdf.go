package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"tripweaver/itinerary"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PDFOptions controls plan export. Core PDF fonts cannot draw Hangul, so a
// UTF-8 TrueType font should be supplied for Korean itineraries.
type PDFOptions struct {
	FontPath    string
	GeneratedAt time.Time
}

// RenderPlanPDF renders every day of the plan in display order and returns the
// document bytes.
func RenderPlanPDF(p *itinerary.Plan, opts PDFOptions) ([]byte, error) {
	if p == nil {
		return nil, itinerary.ErrNoPlan
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)

	family := "Helvetica"
	if opts.FontPath != "" {
		pdf.AddUTF8Font("body", "", opts.FontPath)
		pdf.AddUTF8Font("body", "B", opts.FontPath)
		pdf.AddUTF8Font("body", "I", opts.FontPath)
		family = "body"
	}

	pdf.AddPage()

	// ── Header Bar ───────────────────────────────────────────
	pdf.SetFillColor(13, 24, 37)
	pdf.Rect(0, 0, 210, 28, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(family, "B", 18)
	pdf.SetXY(20, 8)
	pdf.CellFormat(170, 10, p.Destination, "", 0, "L", false, 0, "")
	pdf.SetFont(family, "", 10)
	pdf.SetTextColor(212, 168, 67)
	pdf.SetXY(20, 18)
	pdf.CellFormat(170, 6, fmt.Sprintf("%d days · generated %s", p.TotalDays, opts.GeneratedAt.Format("02 Jan 2006 15:04")), "", 1, "L", false, 0, "")

	pdf.SetY(35)
	pdf.SetTextColor(0, 0, 0)

	sectionHeader := func(title string) {
		pdf.SetFillColor(13, 24, 37)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont(family, "B", 11)
		pdf.CellFormat(170, 8, "  "+title, "", 1, "L", true, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(35, 6, label, "", 0, "L", false, 0, "")
		pdf.SetTextColor(20, 20, 20)
		pdf.SetFont(family, "B", 10)
		pdf.MultiCell(135, 6, value, "", "L", false)
	}

	// ── Overview ─────────────────────────────────────────────
	sectionHeader("Overview")
	row("Destination", p.Destination)
	row("Days", fmt.Sprintf("%d", p.TotalDays))
	row("Total cost", formatWon(p.TotalCost))
	if len(p.Interests) > 0 {
		row("Interests", strings.Join(p.Interests, ", "))
	}
	pdf.Ln(4)

	// ── Days ─────────────────────────────────────────────────
	for i := range p.DailyPlans {
		view, err := itinerary.ViewDay(p, i)
		if err != nil {
			return nil, err
		}

		sectionHeader(fmt.Sprintf("Day %d", i+1))
		if view.Empty() {
			pdf.SetFont(family, "I", 10)
			pdf.SetTextColor(130, 130, 130)
			pdf.CellFormat(170, 6, "No schedule for this day", "", 1, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		for _, e := range view.Entries {
			s := e.Spot
			title := s.Name
			if e.Accommodation {
				title = "[" + itinerary.CategoryLodging + "] " + title
			}
			pdf.SetFont(family, "B", 10)
			pdf.CellFormat(170, 6, title, "", 1, "L", false, 0, "")
			row("Time", s.Time)
			row("Address", s.Address)
			row("Category", s.Category)
			if s.Price > 0 {
				row("Price", formatWon(s.Price))
			}
			row("Tel", s.Tel)
			pdf.Ln(1)
		}
		row("Transport", view.Transportation)
		row("Meals", strings.Join(view.Meals, ", "))
		pdf.Ln(3)
	}

	// ── Recommendations ──────────────────────────────────────
	if len(p.Recommendations) > 0 {
		sectionHeader("Recommendations")
		pdf.SetFont(family, "", 10)
		pdf.SetTextColor(40, 40, 40)
		for _, r := range p.Recommendations {
			pdf.MultiCell(170, 5, "- "+r, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output failed: %w", err)
	}
	return buf.Bytes(), nil
}

var wonPrinter = message.NewPrinter(language.Korean)

// formatWon renders an amount with thousands separators, e.g. 350,000원.
func formatWon(v float64) string {
	return wonPrinter.Sprintf("%d원", int64(v))
}
