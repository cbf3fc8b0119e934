package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10.0
	pdfHeaderRow  = 8.0
	pdfBodyRow    = 7.0
	pdfEllipsis   = "..."
	pdfFooterSize = 8.0
	pdfBottom     = 15.0
)

// PDFExporter renders a Dataset as a landscape A4 table. The header row is
// repeated on every page and cells wider than their column are cut short.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfBottom)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", pdfFooterSize)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pageWidth, pageHeight := pdf.GetPageSize()
	widths := columnWidths(data.Columns, pageWidth-2*pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], pdfHeaderRow, tr(col.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(data.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)
	header()

	for _, row := range data.Rows {
		if pdf.GetY()+pdfBodyRow > pageHeight-pdfBottom {
			pdf.AddPage()
			header()
		}
		for i, value := range row {
			pdf.CellFormat(widths[i], pdfBodyRow, fit(pdf, tr(value), widths[i]-2), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column, total float64) []float64 {
	sum := 0.0
	weights := make([]float64, len(cols))
	for i, col := range cols {
		w := col.Weight
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	out := make([]float64, len(cols))
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}

// fit trims s until it renders within width, marking the cut.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + pdfEllipsis
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
