package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders timetable grids into a printable week view.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape PDF with the timetable grid.
func (e *PDFExporter) Render(grid Grid) ([]byte, error) {
	if len(grid.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(grid.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 20
	// The module column is narrow; days share the rest evenly.
	moduleWidth := 18.0
	dayWidth := (usable - moduleWidth) / float64(len(grid.Headers)-1)

	widthFor := func(col int) float64 {
		if col == 0 {
			return moduleWidth
		}
		return dayWidth
	}

	pdf.SetFont("Arial", "B", 10)
	for col, header := range grid.Headers {
		pdf.CellFormat(widthFor(col), 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range grid.Rows {
		for col := range grid.Headers {
			value := ""
			if col < len(row) {
				value = row[col]
			}
			pdf.CellFormat(widthFor(col), 7, value, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
