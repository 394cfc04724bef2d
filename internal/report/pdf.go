// Package report renders generated itineraries into shareable PDFs.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/dealhunter/dealhunter/internal/advisor"
)

// ItineraryPDF renders the itinerary as a PDF document. It is a pure
// function of the itinerary value; a fallback (empty) itinerary is an
// error since there is nothing to render.
func ItineraryPDF(it advisor.Itinerary) ([]byte, error) {
	if it.Fallback || len(it.Days) == 0 {
		return nil, fmt.Errorf("itinerary for %q has no days to render", it.Destination)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Itinerary - %s", it.Destination), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, fmt.Sprintf("%s - %d day itinerary", it.Destination, len(it.Days)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, day := range it.Days {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, fmt.Sprintf("Day %d: %s", day.Day, day.Title), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 11)
		for _, act := range day.Activities {
			pdf.CellFormat(6, 6, "-", "", 0, "R", false, 0, "")
			pdf.MultiCell(0, 6, act, "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering itinerary PDF: %w", err)
	}
	return buf.Bytes(), nil
}
