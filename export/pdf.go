package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"taskboard/domain"
)

const dueLayout = "Jan 2, 2006"

// WritePDF renders v as a printable board, one section per lane.
func WritePDF(w io.Writer, v domain.View, title string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	for _, lane := range v.Lanes {
		pdf.SetFont("Arial", "B", 13)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%d)", lane.Status, len(lane.Cards))), "", 1, "L", true, 0, "")
		pdf.Ln(1)
		if len(lane.Cards) == 0 {
			pdf.SetFont("Arial", "I", 10)
			pdf.Cell(0, 6, "No tasks")
			pdf.Ln(8)
			continue
		}
		for _, c := range lane.Cards {
			pdf.SetFont("Arial", "B", 11)
			pdf.MultiCell(0, 6, tr(CardTitle(c)), "0", "L", false)
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("Priority: %s    Due: %s", c.Priority, DueLabel(c.Task))), "0", "L", false)
			if d := strings.TrimSpace(c.Description); d != "" {
				pdf.MultiCell(0, 5, tr(d), "0", "L", false)
			}
			pdf.Ln(2)
		}
		pdf.Ln(4)
	}
	return pdf.Output(w)
}

// CardTitle appends the duplicate count when other cards in the lane share
// the title.
func CardTitle(c domain.Card) string {
	if c.Duplicate() {
		return fmt.Sprintf("%s (%d)", c.Title, c.Duplicates)
	}
	return c.Title
}

// DueLabel formats the due date for display.
func DueLabel(t domain.Task) string {
	d, ok := t.Due()
	if !ok {
		return "Invalid Date"
	}
	return d.Format(dueLayout)
}
