// Package export renders a story log as a printable PDF, one comic-style
// panel per turn with the scene art set in a monospace block.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/jwebster45206/hushpath/pkg/game"
)

const (
	margin      = 36.0
	titleSize   = 20.0
	headingSize = 11.0
	bodySize    = 10.0
	artSize     = 4.5 // Courier glyphs are 0.6em wide, so 80 columns fit in 216pt
	artLeading  = 4.6
	artPad      = 6.0
	panelGap    = 18.0
)

// StoryPDF lays out panels under title and returns the PDF bytes.
func StoryPDF(title string, panels []game.StoryPanel) ([]byte, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("hushpath", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*margin

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.CellFormat(contentW, titleSize+4, tr(title), "", 1, "C", false, 0, "")
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(margin, pdf.GetY()+4, pageW-margin, pdf.GetY()+4)
	pdf.Ln(panelGap)

	if len(panels) == 0 {
		pdf.SetFont("Helvetica", "I", bodySize)
		pdf.CellFormat(contentW, bodySize+4, "No story yet.", "", 1, "C", false, 0, "")
	}

	for _, p := range panels {
		art := artLines(p.Art)
		artH := 0.0
		if len(art) > 0 {
			artH = float64(len(art))*artLeading + 2*artPad
		}
		// keep heading and art together
		if pdf.GetY()+headingSize*2+artH > pageH-margin {
			pdf.AddPage()
		}

		pdf.SetFont("Helvetica", "B", headingSize)
		heading := fmt.Sprintf("Turn %d", p.Turn)
		if p.Location != "" {
			heading += " | " + p.Location
		}
		pdf.CellFormat(contentW*0.7, headingSize+4, tr(heading), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", bodySize-2)
		pdf.CellFormat(contentW*0.3, headingSize+4, timestamp(p.Timestamp), "", 1, "R", false, 0, "")

		if p.Action != "" {
			pdf.SetFont("Helvetica", "I", bodySize)
			pdf.MultiCell(contentW, bodySize+3, tr("> "+p.Action), "", "L", false)
		}

		if len(art) > 0 {
			drawArt(pdf, art, margin, pdf.GetY()+4, contentW, artH)
			pdf.SetY(pdf.GetY() + 4 + artH + 4)
		}

		pdf.SetFont("Helvetica", "", bodySize)
		pdf.MultiCell(contentW, bodySize+4, tr(p.Narrative), "", "L", false)
		pdf.Ln(panelGap)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render story pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// drawArt prints lines white on black, centered horizontally in the box.
func drawArt(pdf *gofpdf.Fpdf, lines []string, x, y, w, h float64) {
	pdf.SetFillColor(0, 0, 0)
	pdf.Rect(x, y, w, h, "F")

	pdf.SetFont("Courier", "", artSize)
	pdf.SetTextColor(255, 255, 255)
	cols := 0
	for _, l := range lines {
		cols = max(cols, len(l))
	}
	left := x + max(artPad, (w-pdf.GetStringWidth(strings.Repeat("M", cols)))/2)
	for i, l := range lines {
		pdf.Text(left, y+artPad+float64(i+1)*artLeading-1, l)
	}
	pdf.SetTextColor(0, 0, 0)
}

// artLines drops trailing blank lines and any byte outside printable ASCII.
func artLines(art string) []string {
	art = strings.TrimRight(art, " \n")
	if strings.TrimSpace(art) == "" {
		return nil
	}
	lines := strings.Split(art, "\n")
	for i, l := range lines {
		lines[i] = strings.Map(func(r rune) rune {
			if r < 0x20 || r > 0x7e {
				return ' '
			}
			return r
		}, l)
	}
	return lines
}

func timestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
