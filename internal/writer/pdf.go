package writer

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// PDFWriter renders an A4 statement with an account block and a
// transaction table.
type PDFWriter struct{}

func (PDFWriter) ContentType() string { return "application/pdf" }

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 24, "C"},
	{"Description", 76, "L"},
	{"Credit", 28, "R"},
	{"Debit", 28, "R"},
	{"Balance", 30, "R"},
}

const pdfMaxDescription = 48

func (PDFWriter) Render(w io.Writer, st *models.Statement) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(documentTime(st))
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title(st), true)
	pdf.SetAutoPageBreak(false, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title(st)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, r := range headerRows(st.Header) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(40, 6, r[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(r[1]), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Opening Balance:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, st.OpeningBalance.StringFixed(2), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Transaction Details", "", 1, "L", false, 0, "")
	tableHeader(pdf)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	pdf.SetFont("Arial", "", 9)
	for i, txn := range st.Transactions {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			tableHeader(pdf)
			pdf.SetFont("Arial", "", 9)
		}
		fill := i%2 == 1
		pdf.SetFillColor(249, 249, 249)
		cells := []string{
			txn.Date.Format("02-01-2006"),
			tr(truncate(txn.Description, pdfMaxDescription)),
			dashIfEmpty(formatAmount(txn.Credit)),
			dashIfEmpty(formatAmount(txn.Debit)),
			txn.Balance.StringFixed(2),
		}
		for j, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, cells[j], "1", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	totals := []string{"TOTAL", "", st.TotalCredits.StringFixed(2), st.TotalDebits.StringFixed(2), st.ClosingBalance.StringFixed(2)}
	for j, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, totals[j], "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(76, 175, 80)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
