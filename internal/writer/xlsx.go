package writer

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-editor/internal/models"
)

// XLSXWriter writes a workbook with a summary sheet and a transactions
// sheet.
type XLSXWriter struct{}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Render(w io.Writer, st *models.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	txnSheet := "transactions"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(txnSheet); err != nil {
		return err
	}

	stamp := documentTime(st).Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    title(st),
		Creator:  "statement-editor",
		Created:  stamp,
		Modified: stamp,
	}); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	sw := &sheetWriter{f: f}
	sw.set(summarySheet, "A1", title(st))
	sw.style(summarySheet, "A1", bold)
	row := 3
	for _, r := range headerRows(st.Header) {
		sw.set(summarySheet, fmt.Sprintf("A%d", row), r[0])
		sw.set(summarySheet, fmt.Sprintf("B%d", row), r[1])
		row++
	}
	row++
	for _, r := range []struct {
		label string
		value decimal.Decimal
	}{
		{"Opening Balance", st.OpeningBalance},
		{"Total Credits", st.TotalCredits},
		{"Total Debits", st.TotalDebits},
		{"Closing Balance", st.ClosingBalance},
	} {
		sw.set(summarySheet, fmt.Sprintf("A%d", row), r.label)
		sw.set(summarySheet, fmt.Sprintf("B%d", row), r.value.InexactFloat64())
		row++
	}
	sw.set(summarySheet, fmt.Sprintf("A%d", row), "Version")
	sw.set(summarySheet, fmt.Sprintf("B%d", row), st.Version)
	sw.width(summarySheet, "A", "A", 20)
	sw.width(summarySheet, "B", "B", 40)

	for i, h := range []string{"Date", "Description", "Credit", "Debit", "Balance", "Ref"} {
		cell := fmt.Sprintf("%c1", 'A'+i)
		sw.set(txnSheet, cell, h)
		sw.style(txnSheet, cell, bold)
	}
	for i, txn := range st.Transactions {
		r := i + 2
		sw.set(txnSheet, fmt.Sprintf("A%d", r), txn.Date.String())
		sw.set(txnSheet, fmt.Sprintf("B%d", r), txn.Description)
		sw.set(txnSheet, fmt.Sprintf("C%d", r), txn.Credit.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("D%d", r), txn.Debit.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("E%d", r), txn.Balance.InexactFloat64())
		sw.set(txnSheet, fmt.Sprintf("F%d", r), txn.Ref)
	}
	sw.width(txnSheet, "A", "A", 12)
	sw.width(txnSheet, "B", "B", 48)
	sw.width(txnSheet, "C", "E", 14)
	if sw.err != nil {
		return fmt.Errorf("failed to fill workbook: %w", sw.err)
	}

	return f.Write(w)
}

// documentTime is the timestamp embedded in generated documents, taken
// from the statement so output is stable per version.
func documentTime(st *models.Statement) time.Time {
	if !st.UpdatedAt.IsZero() {
		return st.UpdatedAt.UTC()
	}
	return st.CreatedAt.UTC()
}

// sheetWriter keeps the first excelize error and skips later calls.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (s *sheetWriter) set(sheet, cell string, value any) {
	if s.err == nil {
		s.err = s.f.SetCellValue(sheet, cell, value)
	}
}

func (s *sheetWriter) style(sheet, cell string, style int) {
	if s.err == nil {
		s.err = s.f.SetCellStyle(sheet, cell, cell, style)
	}
}

func (s *sheetWriter) width(sheet, from, to string, width float64) {
	if s.err == nil {
		s.err = s.f.SetColWidth(sheet, from, to, width)
	}
}
